// Package vision はGoogle Cloud Vision APIを使用した画像ラベル検出クライアントを提供します。
package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"foodshare_backend/internal/feature/listing/usecase"
)

const (
	maxLabels = 10
	minScore  = 0.6
)

// VisionLabeler はGoogle Cloud Vision APIを使用して食品画像のラベルを検出します。
type VisionLabeler struct {
	client *gvision.ImageAnnotatorClient
}

// VisionLabelerがImageLabelerを実装していることをコンパイル時に検証します。
var _ usecase.ImageLabeler = (*VisionLabeler)(nil)

// NewVisionLabeler はADCを使用してVisionLabelerの新しいインスタンスを生成します。
func NewVisionLabeler(ctx context.Context) (*VisionLabeler, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &VisionLabeler{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (v *VisionLabeler) Close() error {
	return v.client.Close()
}

// Labels は画像バイト列から信頼度の高いラベルを返します。
func (v *VisionLabeler) Labels(ctx context.Context, image []byte) ([]string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: maxLabels},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}
	return labelsFrom(resp)
}

// labelsFrom はレスポンスからしきい値以上のラベル名を抽出します。
func labelsFrom(resp *visionpb.BatchAnnotateImagesResponse) ([]string, error) {
	if resp == nil || len(resp.Responses) == 0 {
		return nil, nil
	}
	first := resp.Responses[0]
	if first.Error != nil {
		return nil, fmt.Errorf("vision API error: %s", first.Error.Message)
	}

	labels := make([]string, 0, len(first.LabelAnnotations))
	for _, ann := range first.LabelAnnotations {
		if ann.Score < minScore || ann.Description == "" {
			continue
		}
		labels = append(labels, ann.Description)
		if len(labels) == maxLabels {
			break
		}
	}
	return labels, nil
}

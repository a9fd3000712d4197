// Package handler はlistingフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	"foodshare_backend/internal/feature/listing/domain/entity"
	"foodshare_backend/internal/feature/listing/transport/http/dto"
	"foodshare_backend/internal/feature/listing/usecase"
	jwtmw "foodshare_backend/internal/platform/jwt"
	"foodshare_backend/internal/shared/apperr"
	"foodshare_backend/internal/shared/principal"
)

// ListingUsecase はリスティング操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ListingUsecase interface {
	Create(ctx context.Context, caller principal.Principal, in usecase.CreateInput) (*entity.Listing, error)
	Update(ctx context.Context, caller principal.Principal, id string, in usecase.UpdateInput) (*entity.Listing, error)
	Claim(ctx context.Context, caller principal.Principal, id string) (*entity.Listing, error)
	MarkDistributed(ctx context.Context, caller principal.Principal, id string) (*entity.Listing, error)
	Delete(ctx context.Context, caller principal.Principal, id string) error
	Get(ctx context.Context, id string, expandOwner bool) (usecase.ListingView, error)
	List(ctx context.Context, q usecase.ListQuery) (iter.Seq2[usecase.ListingView, error], error)
	AttachImage(ctx context.Context, caller principal.Principal, id string, data []byte) (*usecase.ImageResult, error)
}

// ListingHandler はリスティングのHTTPリクエストを処理します。
type ListingHandler struct {
	uc ListingUsecase
}

// NewListingHandler はListingHandlerの新しいインスタンスを生成します。
func NewListingHandler(uc ListingUsecase) *ListingHandler {
	return &ListingHandler{uc: uc}
}

// Create は新しいリスティングを登録します。
//
// エンドポイント: POST /api/food-waste
func (h *ListingHandler) Create(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.CreateListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("リスティング作成リクエストの解析に失敗", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	l, err := h.uc.Create(c.Request.Context(), p, req.ToInput())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, api.OK(dto.NewListingRes(l, nil), "Food waste entry created successfully."))
}

// List はフィルター条件に一致するリスティングを新しい順に返します。
//
// エンドポイント: GET /api/food-waste?category=&status=&lat=&lng=&expand=owner
// type は category の別名として受け付けます。
func (h *ListingHandler) List(c *gin.Context) {
	q, err := listQuery(c)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	seq, err := h.uc.List(c.Request.Context(), q)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	data := []dto.ListingRes{}
	for view, err := range seq {
		if err != nil {
			api.WriteError(c, err)
			return
		}
		data = append(data, dto.NewListingRes(view.Listing, view.Owner))
	}
	c.JSON(http.StatusOK, api.ListResponse{Success: true, Count: len(data), Data: data})
}

// Get は1件のリスティングを返します。
//
// エンドポイント: GET /api/food-waste/:id?expand=owner
func (h *ListingHandler) Get(c *gin.Context) {
	view, err := h.uc.Get(c.Request.Context(), c.Param("id"), expandOwner(c))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(dto.NewListingRes(view.Listing, view.Owner), ""))
}

// Update はリスティングを更新します。所有者と作成日時はリクエストに含まれていても無視されます。
//
// エンドポイント: PUT /api/food-waste/:id
func (h *ListingHandler) Update(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	var req dto.UpdateListingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("リスティング更新リクエストの解析に失敗", "error", err, "remote_addr", c.ClientIP())
		api.WriteError(c, api.BindingError(err))
		return
	}
	l, err := h.uc.Update(c.Request.Context(), p, c.Param("id"), req.ToInput())
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(dto.NewListingRes(l, nil), "Food waste updated successfully."))
}

// Claim は利用可能なリスティングを確保します。
//
// エンドポイント: PUT /api/food-waste/:id/claim
func (h *ListingHandler) Claim(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	l, err := h.uc.Claim(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	slog.Info("リスティングが確保されました", "listing_id", l.ID, "user_id", p.UserID, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, api.OK(dto.NewListingRes(l, nil), "Food waste claimed successfully."))
}

// Distribute は確保済みリスティングを受け渡し完了にします。
//
// エンドポイント: PUT /api/food-waste/:id/distribute
func (h *ListingHandler) Distribute(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	l, err := h.uc.MarkDistributed(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.OK(dto.NewListingRes(l, nil), "Food waste marked as distributed."))
}

// Delete はリスティングを削除します。
//
// エンドポイント: DELETE /api/food-waste/:id
func (h *ListingHandler) Delete(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	if err := h.uc.Delete(c.Request.Context(), p, c.Param("id")); err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Success: true, Message: "Food waste entry deleted successfully."})
}

// AttachImage は画像をアップロードしてリスティングに追加します。
//
// エンドポイント: POST /api/food-waste/:id/images
// Content-Type: multipart/form-data
// フィールド: image（画像ファイル、最大5MB）
func (h *ListingHandler) AttachImage(c *gin.Context) {
	p, ok := caller(c)
	if !ok {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		if api.IsBodyTooLarge(err) {
			api.WriteError(c, apperr.TooLarge(api.MsgBodyTooLarge))
			return
		}
		api.WriteError(c, apperr.Validation("invalid image", map[string]string{"image": "is required"}))
		return
	}
	if file.Size > usecase.MaxImageBytes {
		api.WriteError(c, apperr.Validation("invalid image", map[string]string{
			"image": fmt.Sprintf("must be at most %d bytes", usecase.MaxImageBytes),
		}))
		return
	}

	f, err := file.Open()
	if err != nil {
		api.WriteError(c, fmt.Errorf("open uploaded image: %w", err))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(f, usecase.MaxImageBytes+1))
	if err != nil {
		api.WriteError(c, fmt.Errorf("read uploaded image: %w", err))
		return
	}

	res, err := h.uc.AttachImage(c.Request.Context(), p, c.Param("id"), data)
	if err != nil {
		api.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ImageRes{
		Success: true,
		Data:    dto.NewListingRes(res.Listing, nil),
		Key:     res.Key,
		Labels:  res.Labels,
	})
}

// caller は認証ミドルウェアが設定したプリンシパルを取得します。
func caller(c *gin.Context) (principal.Principal, bool) {
	p, ok := jwtmw.PrincipalFrom(c)
	if !ok {
		api.WriteError(c, apperr.Unauthorized("not authorized"))
	}
	return p, ok
}

func expandOwner(c *gin.Context) bool {
	for _, v := range strings.Split(c.Query("expand"), ",") {
		if strings.TrimSpace(v) == "owner" {
			return true
		}
	}
	return false
}

func listQuery(c *gin.Context) (usecase.ListQuery, error) {
	q := usecase.ListQuery{
		Category:    c.Query("category"),
		Status:      c.Query("status"),
		ExpandOwner: expandOwner(c),
	}
	if q.Category == "" {
		q.Category = c.Query("type")
	}

	fields := map[string]string{}
	parse := func(name string) *float64 {
		raw := c.Query(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fields[name] = "must be a number"
			return nil
		}
		return &v
	}
	q.Lat = parse("lat")
	q.Lng = parse("lng")
	if len(fields) > 0 {
		return q, apperr.Validation("invalid filter", fields)
	}
	return q, nil
}

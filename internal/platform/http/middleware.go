package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodshare_backend/internal/api"
	"foodshare_backend/internal/shared/apperr"
)

// DefaultBodyLimit はJSONリクエストボディの上限（10KiB）です。
const DefaultBodyLimit = 10 << 10

// BodyLimit はリクエストボディの読み取りを limit バイトまでに制限するミドルウェアを返します。
// Content-Length が上限を超える場合はハンドラーを呼ばずに413を返します。
// Content-Length がない場合の超過は api.BindingError が413に変換します。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			api.WriteError(c, apperr.TooLarge(api.MsgBodyTooLarge))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

package httpgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/eventhub/internal/storage/blob"
)

// multipartOverhead is the slack allowed on top of the object size for
// multipart framing.
const multipartOverhead = 64 << 10

// @Summary  Serve an uploaded image
// @Param    key  path  string  true  "object key"
// @Success  200  {file}  binary
// @Failure  404  {object}  ErrorResponse
// @Router   /media/{key} [get]
func handleServeMedia(store *blob.FileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		key := c.Param("key")
		f, obj, err := store.Open(key)
		if err != nil {
			respondErr(c, err)
			return
		}
		defer f.Close()

		// Keys are content hashes, so a key never changes its bytes.
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
		c.Header("Content-Type", obj.ContentType)
		http.ServeContent(c.Writer, c.Request, obj.Key, obj.ModTime, f)
	}
}

// @Summary  Upload an image
// @Accept   multipart/form-data
// @Param    file  formData  file  true  "jpeg, png, gif or webp"
// @Success  201  {object}  blob.Object
// @Failure  413  {object}  ErrorResponse
// @Failure  415  {object}  ErrorResponse
// @Router   /admin/media [post]
func handleUploadMedia(store *blob.FileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "media storage disabled"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, store.MaxBytes()+multipartOverhead)

		fh, err := c.FormFile("file")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				respondErr(c, blob.ErrTooLarge)
				return
			}
			badRequest(c, "file is required")
			return
		}
		if fh.Size > store.MaxBytes() {
			respondErr(c, blob.ErrTooLarge)
			return
		}

		src, err := fh.Open()
		if err != nil {
			respondErr(c, err)
			return
		}
		defer src.Close()

		obj, err := store.Put(c.Request.Context(), src)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, obj)
	}
}

// @Summary  Delete an uploaded image
// @Param    key  path  string  true  "object key"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/media/{key} [delete]
func handleDeleteMedia(store *blob.FileStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		respondErr(c, store.Delete(c.Param("key")))
	}
}

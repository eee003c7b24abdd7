package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
)

const thumbnailWidth = 200

// mime type -> stored extension
var attachmentMimeTypes = map[string]string{
	"application/pdf":                                                         ".pdf",
	"application/msword":                                                      ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.ms-excel":                                                ".xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"text/csv":                                                                ".csv",
	"image/jpeg":                                                              ".jpg",
	"image/png":                                                               ".png",
	"audio/mpeg":                                                              ".mp3",
	"audio/wav":                                                               ".wav",
	"audio/x-wav":                                                             ".wav",
}

var extensionMimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
}

// attachmentMimeType resolves the upload's type, falling back to the file
// extension for generic content types.
func attachmentMimeType(fileName string, contentType string) (string, bool) {
	mimeType := baseMimeType(contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = extensionMimeTypes[strings.ToLower(filepath.Ext(fileName))]
	}
	_, ok := attachmentMimeTypes[mimeType]
	return mimeType, ok
}

func attachmentObjectKey(ownerId int, entityType string, entityId int, mimeType string) string {
	return fmt.Sprintf("owners/%d/%s/%d/%s%s", ownerId, sanitizeSegment(entityType), entityId, uuid.NewString(), attachmentMimeTypes[mimeType])
}

func thumbnailObjectKey(objectKey string) string {
	name := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey)) + ".jpg"
	return path.Join(path.Dir(objectKey), "thumbnails", name)
}

func sanitizeSegment(input string) string {
	var out strings.Builder
	for _, r := range strings.ToLower(input) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			out.WriteRune(r)
		}
	}
	return out.String()
}

// thumbnail renders a JPEG 200px wide, keeping the aspect ratio.
func thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	resized := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Handler) uploadAttachment(c *gin.Context) {
	if h.Storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "file storage not configured"})
		return
	}
	ctx := c.Request.Context()
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		h.respondError(c, "attachment", "uploadAttachment", err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > h.Options.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}
	mimeType, ok := attachmentMimeType(fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	entityType := strings.TrimSpace(c.PostForm("entityType"))
	entityId, _ := strconv.Atoi(c.PostForm("entityId"))
	if err := models.ValidateEntityReference(ctx, entityType, entityId); err != nil {
		h.respondError(c, entityType, "uploadAttachment", err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.Options.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	if int64(len(data)) > h.Options.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the upload size limit"})
		return
	}

	objectKey := attachmentObjectKey(ownerId, entityType, entityId, mimeType)
	if err := h.Storage.Upload(ctx, objectKey, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		config.LogError(h.Logger, "handlers", "uploadAttachment", "uploading object", objectKey, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to store file"})
		return
	}

	input := &models.NewAttachment{
		FileName:   fileHeader.Filename,
		MimeType:   mimeType,
		Size:       int64(len(data)),
		ObjectKey:  objectKey,
		Url:        utils.BuildObjectAccessURL(objectKey),
		EntityType: entityType,
		EntityId:   entityId,
	}
	if strings.HasPrefix(mimeType, "image/") {
		thumbKey, err := h.storeThumbnail(ctx, objectKey, data)
		if err != nil {
			// the original is stored; the attachment just has no preview
			config.LogError(h.Logger, "handlers", "uploadAttachment", "creating thumbnail", objectKey, err)
		} else {
			input.ThumbnailKey = thumbKey
			input.ThumbnailUrl = utils.BuildObjectAccessURL(thumbKey)
		}
	}

	attachment, err := models.CreateAttachment(ctx, input)
	if err != nil {
		h.removeObjects(ctx, objectKey, input.ThumbnailKey)
		h.respondError(c, "attachment", "uploadAttachment", err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

func (h *Handler) storeThumbnail(ctx context.Context, objectKey string, data []byte) (string, error) {
	thumb, err := thumbnail(data)
	if err != nil {
		return "", err
	}
	thumbKey := thumbnailObjectKey(objectKey)
	if err := h.Storage.Upload(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
		return "", err
	}
	return thumbKey, nil
}

// removeObjects deletes stored objects best-effort.
func (h *Handler) removeObjects(ctx context.Context, keys ...string) {
	if h.Storage == nil {
		return
	}
	for _, key := range keys {
		if key == "" || !utils.SafeObjectKey(key) {
			continue
		}
		if err := h.Storage.Delete(ctx, key); err != nil {
			config.LogError(h.Logger, "handlers", "removeObjects", "deleting object", key, err)
		}
	}
}

func (h *Handler) listAttachments(c *gin.Context) {
	entityId, _ := strconv.Atoi(c.Query("entityId"))
	attachments, err := models.GetAttachments(c.Request.Context(), strings.TrimSpace(c.Query("entityType")), entityId)
	if err != nil {
		h.respondError(c, "attachment", "listAttachments", err)
		return
	}
	if attachments == nil {
		attachments = []*models.Attachment{}
	}
	c.JSON(http.StatusOK, attachments)
}

func (h *Handler) getAttachment(c *gin.Context) {
	id, ok := paramId(c, "id", "attachment")
	if !ok {
		return
	}
	attachment, err := models.GetAttachment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "attachment", "getAttachment", err)
		return
	}
	c.JSON(http.StatusOK, attachment)
}

func (h *Handler) deleteAttachment(c *gin.Context) {
	id, ok := paramId(c, "id", "attachment")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	attachment, err := models.DeleteAttachment(ctx, id)
	if err != nil {
		h.respondError(c, "attachment", "deleteAttachment", err)
		return
	}
	h.removeObjects(ctx, attachment.ObjectKey, attachment.ThumbnailKey)
	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bottlebank/services/storage"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StorageHandler accepts proof photo uploads and resolves download URLs.
type StorageHandler struct {
	Storage storage.StorageService
}

func NewStorageHandler(s storage.StorageService) *StorageHandler {
	return &StorageHandler{Storage: s}
}

// UploadProofPhotoHandler stores a proof photo and returns its identifier.
func (h *StorageHandler) UploadProofPhotoHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "missing file", "Attach the photo as multipart field 'file'.")
		return
	}

	tmpPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tmpPath); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "could not stage upload", "Please try again.")
		return
	}
	defer os.Remove(tmpPath)

	publicID, err := h.Storage.UploadFile(c.Request.Context(), tmpPath, storage.ProofPhotoFolder)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "photo upload failed", "Check your connection and try again.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"photoId": publicID})
}

// GetPhotoURLHandler resolves a photo identifier to a URL.
func (h *StorageHandler) GetPhotoURLHandler(c *gin.Context) {
	photoID := c.Param("id")
	url, err := h.Storage.GetDownloadURL(c.Request.Context(), "image", photoID, time.Hour)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "photo not found", "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

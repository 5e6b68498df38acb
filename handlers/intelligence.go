package handlers

import (
	"io"
	"net/http"

	"bottlebank/services/intelligence"
	"bottlebank/services/sync"
	"bottlebank/utils"

	"github.com/gin-gonic/gin"
)

// maxPhotoBytes caps inline photo analysis payloads at 8 MiB.
const maxPhotoBytes = 8 << 20

// AIHandler runs proof photos through the bottle count oracle.
type AIHandler struct {
	Analyzer intelligence.Analyzer
}

func NewAIHandler(analyzer intelligence.Analyzer) *AIHandler {
	return &AIHandler{Analyzer: analyzer}
}

// AnalyzePhotoHandler counts bottles in an uploaded photo. A failure here
// never blocks completion; the client falls back to a manual count.
func (h *AIHandler) AnalyzePhotoHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "missing file", "Attach the photo as multipart field 'file'.")
		return
	}
	if file.Size > maxPhotoBytes {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "photo too large", "Resize the photo below 8MB.")
		return
	}

	f, err := file.Open()
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable file", "")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "unreadable file", "")
		return
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	analysis, err := h.Analyzer.Analyze(c.Request.Context(), data, mimeType)
	if err != nil {
		respondEngineError(c, sync.AIUnavailable(err))
		return
	}

	c.JSON(http.StatusOK, analysis)
}

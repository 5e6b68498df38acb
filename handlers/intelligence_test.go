package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"bottlebank/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	analysis *models.BottleAnalysis
	err      error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, data []byte, mimeType string) (*models.BottleAnalysis, error) {
	return s.analysis, s.err
}

func photoRequest(t *testing.T) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "bottles.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestAnalyzePhotoOracleDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAIHandler(&stubAnalyzer{err: errors.New("model timeout")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = photoRequest(t)
	h.AnalyzePhotoHandler(c)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "bottle count service is unavailable")
	assert.Contains(t, rec.Body.String(), "manually")
}

func TestAnalyzePhotoHappyPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAIHandler(&stubAnalyzer{analysis: &models.BottleAnalysis{Count: 42, Confidence: 88}})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = photoRequest(t)
	h.AnalyzePhotoHandler(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":42`)
}

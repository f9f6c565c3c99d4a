package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/glaucoma-agent/internal/diagnosis"
	"github.com/example/glaucoma-agent/internal/inference"
	"github.com/example/glaucoma-agent/internal/logging"
	"github.com/example/glaucoma-agent/internal/session"
	"github.com/example/glaucoma-agent/internal/usecase"
)

type handler struct {
	uc     *usecase.AnalysisUseCase
	logger *zap.Logger
}

// RegisterRoutes wires the page, form and API handlers to the Gin router.
// Every route except /health runs behind sessionMiddleware.
func RegisterRoutes(router *gin.Engine, uc *usecase.AnalysisUseCase, sessionMiddleware gin.HandlerFunc, logger *zap.Logger) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	h := &handler{uc: uc, logger: logger.Named("handlers")}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, uc.GetMetricsSummary())
	})

	ui := router.Group("/", sessionMiddleware)
	ui.GET("/", h.index)
	ui.POST("/settings", h.updateSettings)
	ui.POST("/analyze", h.analyze)
	ui.POST("/api/analyze", h.analyzeJSON)

	return nil
}

func (h *handler) index(c *gin.Context) {
	sessionID, _ := session.GetID(c.Request.Context())
	endpoint, err := h.uc.Endpoint(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load session endpoint", zap.Error(err))
		c.HTML(http.StatusInternalServerError, pageTemplate, pageView{Error: "Session storage is unavailable. Please try again."})
		return
	}
	c.HTML(http.StatusOK, pageTemplate, pageView{Endpoint: endpoint})
}

func (h *handler) updateSettings(c *gin.Context) {
	sessionID, _ := session.GetID(c.Request.Context())
	if err := h.uc.UpdateEndpoint(c.Request.Context(), sessionID, c.PostForm("server_url")); err != nil {
		h.logger.Error("failed to save session endpoint", zap.Error(err))
		c.HTML(http.StatusInternalServerError, pageTemplate, pageView{Endpoint: c.PostForm("server_url"), Error: "Could not save the server URL. Please try again."})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *handler) analyze(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, _ := session.GetID(ctx)
	endpoint, err := h.uc.Endpoint(ctx, sessionID)
	if err != nil {
		// Analyze reloads the endpoint and reports the failure itself.
		h.logger.Error("failed to load session endpoint", zap.Error(err))
	}

	img, err := readUpload(c)
	if err != nil {
		c.HTML(uploadStatus(err), pageTemplate, pageView{Endpoint: endpoint, Error: uploadMessage(err)})
		return
	}

	analysis, err := h.uc.Analyze(ctx, sessionID, img)
	if err != nil {
		status, message := h.analysisFailure(err)
		c.HTML(status, pageTemplate, pageView{Endpoint: endpoint, Error: message})
		return
	}

	c.Header("X-Request-ID", analysis.RequestID)
	c.HTML(http.StatusOK, pageTemplate, pageView{Endpoint: analysis.Endpoint, Result: newResultView(analysis)})
}

func (h *handler) analyzeJSON(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID, _ := session.GetID(ctx)

	img, err := readUpload(c)
	if err != nil {
		c.JSON(uploadStatus(err), gin.H{"error": uploadMessage(err)})
		return
	}

	analysis, err := h.uc.Analyze(ctx, sessionID, img)
	if err != nil {
		status, message := h.analysisFailure(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	res := analysis.Result
	body := gin.H{
		"request_id":     analysis.RequestID,
		"classification": res.Classification,
		"badge":          string(diagnosis.BadgeFor(res.Label())),
		"detail":         res.Detail,
	}
	if res.Ratio != nil {
		body["ratio"] = *res.Ratio
	}
	if res.HasImage() {
		body["annotated_image_url"] = res.AnnotatedImageURL
	}
	c.Header("X-Request-ID", analysis.RequestID)
	c.JSON(http.StatusOK, body)
}

// analysisFailure maps an Analyze error to a status code and a message fit
// for the user.
func (h *handler) analysisFailure(err error) (int, string) {
	var predErr *inference.Error
	switch {
	case errors.Is(err, usecase.ErrNoImage):
		return http.StatusBadRequest, "Please choose a fundus image to upload."
	case errors.Is(err, usecase.ErrNoEndpoint):
		return http.StatusBadRequest, "Please provide a valid server URL in the settings."
	case errors.Is(err, usecase.ErrInFlight):
		return http.StatusConflict, "An analysis is already running. Please wait for it to finish."
	case errors.As(err, &predErr):
		return http.StatusBadGateway, predErr.Message
	default:
		var opErr *logging.OperationError
		if errors.As(err, &opErr) {
			h.logger.Error("analysis failed", zap.String("operation", opErr.Operation), zap.Error(err))
		} else {
			h.logger.Error("analysis failed", zap.Error(err))
		}
		return http.StatusInternalServerError, "Something went wrong while contacting the server."
	}
}

func uploadMessage(err error) string {
	switch {
	case errors.Is(err, errUploadTooLarge):
		return "The image is too large. Please upload a file under 10 MiB."
	case errors.Is(err, errUnsupportedFormat):
		return "Unsupported file type. Accepted formats: PNG, JPG."
	case errors.Is(err, errUploadMissing):
		return "Please choose a fundus image to upload."
	default:
		return "The upload could not be read. Please try again."
	}
}

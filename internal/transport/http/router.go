package http

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"quiz-room-service/internal/app"
	"quiz-room-service/internal/domain"
)

const qrSize = 320

// API serves the REST side of the service: quiz generation, room lookups and join QR codes.
type API struct {
	service   *app.RoomService
	publicURL string
}

func NewAPI(service *app.RoomService, publicURL string) *API {
	return &API{service: service, publicURL: strings.TrimRight(publicURL, "/")}
}

// NewRouter mounts the REST endpoints and the websocket upgrade on a gin engine.
func NewRouter(api *API, ws *WSHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	apiGroup := router.Group("/api")
	apiGroup.POST("/generate-quiz", api.GenerateQuiz)
	apiGroup.GET("/rooms/:code", api.GetRoom)
	apiGroup.GET("/rooms/:code/qr", api.RoomQR)
	return router
}

type generateQuizRequest struct {
	Prompt       string `json:"prompt" binding:"required"`
	NumQuestions int    `json:"numQuestions" binding:"required,min=1,max=50"`
}

// GenerateQuiz calls the content generator once and returns the validated quiz.
func (a *API) GenerateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt and numQuestions (1-50) are required"})
		return
	}

	quiz, err := a.service.GenerateQuiz(c.Request.Context(), strings.TrimSpace(req.Prompt), req.NumQuestions)
	if err != nil {
		log.Printf("generate quiz failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate quiz"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quiz": quiz})
}

// GetRoom returns a snapshot so late joiners can render the right screen.
func (a *API) GetRoom(c *gin.Context) {
	snapshot, err := a.service.Snapshot(c.Request.Context(), c.Param("code"))
	if errors.Is(err, domain.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// RoomQR renders a PNG QR code pointing students at the join page for a room.
func (a *API) RoomQR(c *gin.Context) {
	code := c.Param("code")
	png, err := qrcode.Encode(a.joinURL(c.Request, code), qrcode.Medium, qrSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (a *API) joinURL(r *http.Request, code string) string {
	base := a.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join?code=" + url.QueryEscape(code)
}

// Package httpapi binds the engine to the HTTP edge: JSON request
// DTOs in, clob.Request through the engine, JSON response DTOs out. Every
// domain failure is still HTTP 200 with success: false; non-2xx is
// reserved for transport and parse errors.
package httpapi

import (
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clobd/internal/clob"
	"clobd/internal/codec"
	"clobd/internal/engine"
)

// NewRouter builds the gin engine binding /deposit, /withdraw, /orders,
// /cancel and /clob-state to eng.
func NewRouter(eng *engine.Engine) *gin.Engine {
	r := gin.New()
	r.Use(requestID(), ginLogger(), gin.Recovery())

	r.POST("/deposit", handleDeposit(eng))
	r.POST("/withdraw", handleWithdraw(eng))
	r.POST("/orders", handleAddOrder(eng))
	r.POST("/cancel", handleCancel(eng))
	r.GET("/clob-state", handleClobState(eng))

	return r
}

// requestID assigns a correlation id to every request, echoed back in the
// X-Request-Id header and attached to the gin context for ginLogger to
// pick up.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

func handleDeposit(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto codec.DepositRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req, err := dto.ToRequest()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		submit(c, eng, req)
	}
}

func handleWithdraw(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto codec.WithdrawRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req, err := dto.ToRequest()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		submit(c, eng, req)
	}
}

func handleAddOrder(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto codec.AddOrderRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req, err := dto.ToRequest()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		submit(c, eng, req)
	}
}

func handleCancel(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto codec.CancelOrderRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		submit(c, eng, dto.ToRequest())
	}
}

func handleClobState(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := eng.LatestState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		hash := codec.StateHash(state)
		c.JSON(http.StatusOK, gin.H{
			"state": hex.EncodeToString(codec.EncodeState(state)),
			"hash":  hex.EncodeToString(hash[:]),
		})
	}
}

// submit sends req through the engine and writes the standard
// {response, globalIndex} envelope. Engine-level errors (journal I/O,
// codec corruption) are infrastructure failures, not domain failures, and
// surface as 500s — a tick never returns one for well-formed input.
func submit(c *gin.Context, eng *engine.Engine, req clob.Request) {
	result, err := eng.Submit(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, codec.ApiResponseDTO{
		Response:    codec.ResponseToDTO(result.Response),
		GlobalIndex: result.GlobalIndex,
	})
}

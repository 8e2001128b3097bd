package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rickgao/polywhales/internal/config"
	"github.com/rickgao/polywhales/internal/model"
	"github.com/rickgao/polywhales/internal/notify"
	"github.com/rickgao/polywhales/internal/scheduler"
	"github.com/rickgao/polywhales/internal/telegram"
	"github.com/rickgao/polywhales/internal/version"
)

// Error codes returned in {error:{code}}.
const (
	CodeConfigError           = "CONFIG_ERROR"
	CodeTrackWalletError      = "TRACK_WALLET_ERROR"
	CodeSweepInProgress       = "SWEEP_IN_PROGRESS"
	CodeSendNotificationError = "SEND_NOTIFICATION_ERROR"
	CodeTelegramWebhookError  = "TELEGRAM_WEBHOOK_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
)

// Response messages.
const (
	MsgTrackingCompleted = "Wallet tracking completed"
	MsgNoWallets         = "No wallets to track"
	MsgNotificationsSent = "Notifications sent"
	MsgNoSubscriptions   = "No subscriptions found"
)

// telegramSecretHeader carries the secret registered with setWebhook.
const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Stats   *model.SweepStats `json:"stats,omitempty"`
}

func writeError(c *gin.Context, status int, code, message string, stats *model.SweepStats) {
	c.JSON(status, gin.H{"error": errorBody{Code: code, Message: message, Stats: stats}})
}

func (s *Server) handleTrackWalletActivity(c *gin.Context) {
	if s.deps.Sweeper == nil {
		writeError(c, http.StatusInternalServerError, CodeConfigError, "sweeper is not configured", nil)
		return
	}

	// The sweep outlives the request; a dropped caller must not cut it short.
	stats, err := s.deps.Sweeper.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		var cfgErr *config.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			s.deps.Metrics.SweepRejected("config_error")
			writeError(c, http.StatusInternalServerError, CodeConfigError, err.Error(), &stats)
		case errors.Is(err, scheduler.ErrSweepInProgress):
			s.deps.Metrics.SweepRejected("in_progress")
			writeError(c, http.StatusConflict, CodeSweepInProgress, err.Error(), &stats)
		default:
			s.deps.Metrics.SweepRejected("error")
			s.logger.Error("sweep failed", "error", err)
			writeError(c, http.StatusInternalServerError, CodeTrackWalletError, err.Error(), &stats)
		}
		return
	}

	message := MsgTrackingCompleted
	if stats.Wallets() == 0 {
		message = MsgNoWallets
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": message, "stats": stats}})
}

type sendNotificationRequest struct {
	WalletAddress string `json:"wallet_address"`
	Activity      *struct {
		Side        string          `json:"side"`
		Amount      decimal.Decimal `json:"amount"`
		Price       decimal.Decimal `json:"price"`
		Outcome     string          `json:"outcome"`
		MarketTitle string          `json:"market_title"`
	} `json:"activity"`
}

func (s *Server) handleSendNotification(c *gin.Context) {
	if s.deps.Dispatcher == nil {
		writeError(c, http.StatusInternalServerError, CodeSendNotificationError, "notifications are not configured", nil)
		return
	}

	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, CodeSendNotificationError, "invalid request body", nil)
		return
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" || req.Activity == nil {
		writeError(c, http.StatusBadRequest, CodeSendNotificationError, "Missing required parameters", nil)
		return
	}

	res, err := s.deps.Dispatcher.Dispatch(c.Request.Context(), wallet, notify.Alert{
		Side:        model.ParseSide(req.Activity.Side),
		Amount:      req.Activity.Amount,
		Price:       req.Activity.Price,
		Outcome:     req.Activity.Outcome,
		MarketTitle: req.Activity.MarketTitle,
	})
	if err != nil {
		s.logger.Error("send notification failed", "wallet", wallet, "error", err)
		writeError(c, http.StatusInternalServerError, CodeSendNotificationError, err.Error(), nil)
		return
	}

	message := MsgNotificationsSent
	if res.Attempted == 0 {
		message = MsgNoSubscriptions
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": message, "sent": res.Sent}})
}

func (s *Server) handleTelegramWebhook(c *gin.Context) {
	if secret := s.cfg.WebhookSecret; secret != "" {
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			writeError(c, http.StatusUnauthorized, CodeUnauthorized, "invalid webhook secret", nil)
			return
		}
	}
	if s.deps.Bot == nil {
		writeError(c, http.StatusInternalServerError, CodeTelegramWebhookError, "bot is not configured", nil)
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		writeError(c, http.StatusInternalServerError, CodeTelegramWebhookError, "invalid update: "+err.Error(), nil)
		return
	}
	if err := s.deps.Bot.HandleUpdate(c.Request.Context(), update); err != nil {
		writeError(c, http.StatusInternalServerError, CodeTelegramWebhookError, err.Error(), nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok", "version": version.Get()}
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(c.Request.Context()); err != nil {
			body["status"] = "degraded"
			body["store"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}

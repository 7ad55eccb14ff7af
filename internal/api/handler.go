package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/deposit"
)

// DepositVerifier is the verification service behind the handler.
type DepositVerifier interface {
	Verify(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error)
	Config() deposit.Config
}

const (
	actionConfig = "config"
	actionVerify = "verify"
)

// DepositRequest is the body accepted by the deposit endpoints.
type DepositRequest struct {
	Action           string           `json:"action"           validate:"omitempty,oneof=config verify"`
	FromAddress      string           `json:"fromAddress"`
	MinAmount        *decimal.Decimal `json:"minAmount"`
	LookbackBlocks   *uint64          `json:"lookbackBlocks"`
	MinConfirmations *uint64          `json:"minConfirmations"`
}

// verifyInput carries the validation rules of verify mode.
type verifyInput struct {
	FromAddress string `validate:"required,eth_addr"`
}

// ConfigResponse is returned in config mode.
type ConfigResponse struct {
	DepositAddress string `json:"depositAddress"`
	TokenAddress   string `json:"tokenAddress"`
	Decimals       int    `json:"decimals"`
}

// VerifyResponse is returned in verify mode. Amounts are JSON numbers.
type VerifyResponse struct {
	FromAddress    string       `json:"fromAddress"`
	DepositAddress string       `json:"depositAddress"`
	TokenAddress   string       `json:"tokenAddress"`
	Decimals       int          `json:"decimals"`
	TotalFound     json.Number  `json:"totalFound"`
	NewlyCredited  json.Number  `json:"newlyCredited"`
	MatchedCount   int          `json:"matchedCount"`
	CreditedTxs    []string     `json:"creditedTxs"`
	DecodeFailures int          `json:"decodeFailures"`
	LedgerFailures int          `json:"ledgerFailures"`
	MinAmount      *json.Number `json:"minAmount,omitempty"`
}

// DepositHandler serves the config and verify modes.
type DepositHandler struct {
	verifier DepositVerifier
	auth     *Authenticator
	validate *validator.Validate
}

// NewDepositHandler creates a DepositHandler.
func NewDepositHandler(verifier DepositVerifier, auth *Authenticator) *DepositHandler {
	return &DepositHandler{
		verifier: verifier,
		auth:     auth,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// GetConfig handles GET /v1/deposits/config.
func (h *DepositHandler) GetConfig(c *gin.Context) {
	cfg := h.verifier.Config()
	if cfg.DepositAddress == "" {
		writeError(c, fmt.Errorf("%w: deposit address not configured", domain.ErrConfiguration))
		return
	}
	c.JSON(http.StatusOK, ConfigResponse{
		DepositAddress: cfg.DepositAddress,
		TokenAddress:   cfg.TokenAddress,
		Decimals:       cfg.Decimals,
	})
}

// Dispatch handles POST /v1/deposits. The action defaults to verify;
// config needs no authentication.
func (h *DepositHandler) Dispatch(c *gin.Context) {
	req, err := h.bind(c)
	if err != nil {
		writeError(c, err)
		return
	}

	if req.Action == actionConfig {
		h.GetConfig(c)
		return
	}

	userID, err := h.auth.UserID(c.GetHeader("Authorization"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("user_id", userID)

	h.verify(c, userID, req)
}

// Verify handles POST /v1/deposits/verify. Authentication middleware sets user_id.
func (h *DepositHandler) Verify(c *gin.Context) {
	req, err := h.bind(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if req.Action == actionConfig {
		writeError(c, fmt.Errorf("%w: action %q not allowed on this route", domain.ErrInvalidInput, req.Action))
		return
	}
	h.verify(c, c.GetString("user_id"), req)
}

func (h *DepositHandler) bind(c *gin.Context) (*DepositRequest, error) {
	var req DepositRequest

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: request body too large", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrInvalidInput, err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON body: %w", domain.ErrInvalidInput, err)
		}
	}

	if err := h.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if req.Action == "" {
		req.Action = actionVerify
	}
	return &req, nil
}

func (h *DepositHandler) verify(c *gin.Context, userID string, req *DepositRequest) {
	if err := h.validate.Struct(verifyInput{FromAddress: req.FromAddress}); err != nil {
		writeError(c, fmt.Errorf("%w: fromAddress must be a 0x-prefixed 40 hex character address", domain.ErrInvalidInput))
		return
	}

	res, err := h.verifier.Verify(c.Request.Context(), deposit.VerifyRequest{
		UserID:           userID,
		FromAddress:      req.FromAddress,
		MinAmount:        req.MinAmount,
		LookbackBlocks:   req.LookbackBlocks,
		MinConfirmations: req.MinConfirmations,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toVerifyResponse(res))
}

func toVerifyResponse(res *deposit.VerifyResult) VerifyResponse {
	out := VerifyResponse{
		FromAddress:    res.FromAddress,
		DepositAddress: res.DepositAddress,
		TokenAddress:   res.TokenAddress,
		Decimals:       res.Decimals,
		TotalFound:     json.Number(res.TotalFound.String()),
		NewlyCredited:  json.Number(res.NewlyCredited.String()),
		MatchedCount:   res.MatchedCount,
		CreditedTxs:    res.CreditedTxs,
		DecodeFailures: res.DecodeFailures,
		LedgerFailures: res.LedgerFailures,
	}
	if out.CreditedTxs == nil {
		out.CreditedTxs = []string{}
	}
	if res.MinAmount != nil {
		n := json.Number(res.MinAmount.String())
		out.MinAmount = &n
	}
	return out
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/depositverifier/internal/core/domain"
	"github.com/vietddude/depositverifier/internal/deposit"
)

func TestVerifyAndClose_ClosesOnFailure(t *testing.T) {
	closed := 0
	verify := func(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error) {
		return nil, domain.ErrRPC
	}

	var out bytes.Buffer
	err := verifyAndClose(context.Background(), verify, func() error { closed++; return nil },
		deposit.VerifyRequest{UserID: "u1"}, &out)

	require.ErrorIs(t, err, domain.ErrRPC)
	assert.Equal(t, 1, closed)
	assert.Empty(t, out.String())
}

func TestVerifyAndClose_PrintsResult(t *testing.T) {
	closed := 0
	verify := func(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error) {
		assert.Equal(t, "u1", req.UserID)
		return &deposit.VerifyResult{NewlyCredited: decimal.NewFromInt(5), MatchedCount: 1}, nil
	}

	var out bytes.Buffer
	err := verifyAndClose(context.Background(), verify, func() error { closed++; return nil },
		deposit.VerifyRequest{UserID: "u1"}, &out)

	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	var printed map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &printed))
	assert.Equal(t, "5", printed["NewlyCredited"])
	assert.EqualValues(t, 1, printed["MatchedCount"])
}

func TestVerifyAndClose_ReportsCloseError(t *testing.T) {
	verify := func(ctx context.Context, req deposit.VerifyRequest) (*deposit.VerifyResult, error) {
		return &deposit.VerifyResult{}, nil
	}
	closeErr := errors.New("db busy")

	err := verifyAndClose(context.Background(), verify, func() error { return closeErr },
		deposit.VerifyRequest{}, &bytes.Buffer{})

	require.ErrorIs(t, err, closeErr)
}

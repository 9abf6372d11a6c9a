package errors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{Resource: "gamepass", ID: "123"}
		assert.Equal(t, "gamepass with ID 123 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		wrapped := errors.Join(errors.New("failed"), pkgerrors.NewNotFoundError("product", "9"))
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("price", -1, "must not be negative")
		assert.Equal(t, "validation failed for field price: must not be negative", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "bad"}
		assert.Equal(t, "validation failed: bad", err.Error())
	})
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.ParseError
		want string
	}{
		{
			name: "with position",
			err:  &pkgerrors.ParseError{Format: "toml", File: "products.toml", Line: 3, Column: 7, Message: "expected value"},
			want: "parse error in toml at products.toml:3:7: expected value",
		},
		{
			name: "with key",
			err:  &pkgerrors.ParseError{Format: "toml", File: "products.toml", Key: "gamepasses.vip.discount", Message: "out of range"},
			want: "parse error in toml file products.toml at gamepasses.vip.discount: out of range",
		},
		{
			name: "without file",
			err:  &pkgerrors.ParseError{Format: "toml", Message: "empty"},
			want: "parse error in toml file <input>: empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, pkgerrors.IsParseError(tt.err))
		})
	}

	t.Run("wrap", func(t *testing.T) {
		base := errors.New("boom")
		err := pkgerrors.WrapParse("toml", "x.toml", base)
		require.Error(t, err)
		assert.ErrorIs(t, err, base)
		assert.Nil(t, pkgerrors.WrapParse("toml", "x.toml", nil))
	})
}

func TestConflictError(t *testing.T) {
	err := pkgerrors.NewConflictError("gamepass", "vip", "ambiguous name match")
	assert.Equal(t, `conflict for gamepass "vip": ambiguous name match`, err.Error())
	assert.True(t, pkgerrors.IsConflict(fmt.Errorf("plan: %w", err)))
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status      int
		transient   bool
		rateLimited bool
		unavailable bool
	}{
		{status: 0, transient: true},
		{status: 400, transient: false},
		{status: 404, transient: false},
		{status: 429, transient: true, rateLimited: true},
		{status: 500, transient: true, unavailable: true},
		{status: 503, transient: true, unavailable: true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := pkgerrors.NewAPIError("roblox", tt.status, "failed")
			assert.Equal(t, tt.transient, err.Transient())
			assert.Equal(t, tt.transient, pkgerrors.IsTransient(fmt.Errorf("wrap: %w", err)))
			assert.Equal(t, tt.rateLimited, pkgerrors.IsRateLimited(err))
			assert.Equal(t, tt.unavailable, errors.Is(err, pkgerrors.ErrRemoteUnavailable))
		})
	}

	t.Run("wrapped error", func(t *testing.T) {
		base := errors.New("connection reset")
		err := pkgerrors.WrapAPI("roblox", 0, base)
		assert.ErrorIs(t, err, base)
		assert.Contains(t, err.Error(), "roblox")
	})

	t.Run("non api error is not transient", func(t *testing.T) {
		assert.False(t, pkgerrors.IsTransient(errors.New("plain")))
	})
}

func TestAuthenticationError(t *testing.T) {
	err := pkgerrors.NewAuthenticationError("roblox", "api_key", "RBX_API_KEY is not set", nil)
	assert.Equal(t, "authentication error for roblox (api_key): RBX_API_KEY is not set", err.Error())
	assert.True(t, pkgerrors.IsAuthError(err))
	assert.ErrorIs(t, err, pkgerrors.ErrAPIKeyRequired)
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := pkgerrors.WrapIO("write", "products.luau", base)
	assert.Equal(t, "IO error during write of products.luau: permission denied", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Nil(t, pkgerrors.WrapIO("write", "x", nil))
}

func TestResourceError(t *testing.T) {
	base := pkgerrors.NewAPIError("roblox", 400, "name taken")
	err := pkgerrors.WrapResource("create", "gamepass", "vip", base)
	assert.Contains(t, err.Error(), "failed to create gamepass vip")

	var apiErr *pkgerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.False(t, apiErr.Transient())
}

func TestConfigError(t *testing.T) {
	err := pkgerrors.NewConfigError("roblox", "RBX_API_BASE_URL is not a URL", nil)
	assert.Equal(t, "configuration error in roblox: RBX_API_BASE_URL is not a URL", err.Error())
}

func TestIsCanceled(t *testing.T) {
	assert.True(t, pkgerrors.IsCanceled(pkgerrors.ErrCanceled))
	assert.True(t, pkgerrors.IsCanceled(fmt.Errorf("list: %w", context.Canceled)))
	assert.True(t, pkgerrors.IsCanceled(pkgerrors.WrapResource("create", "gamepass", "vip", context.Canceled)))
	assert.False(t, pkgerrors.IsCanceled(context.DeadlineExceeded))
	assert.False(t, pkgerrors.IsCanceled(nil))
}

func TestWrapValidation(t *testing.T) {
	assert.Nil(t, pkgerrors.WrapValidation("field", nil))

	err := pkgerrors.WrapValidation("RBX_API_BASE_URL", errors.New("missing scheme"))
	assert.True(t, pkgerrors.IsValidationError(err))
	assert.Contains(t, err.Error(), "missing scheme")
}

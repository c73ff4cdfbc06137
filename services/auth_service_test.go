package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesAdminToken(t *testing.T) {
	svc, err := NewAuthService("hunter2", "test-secret")
	require.NoError(t, err)

	signed, err := svc.Login(context.Background(), "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "admin", claims["role"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, err := NewAuthService("hunter2", "test-secret")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "letmein")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestNewAuthServiceRequiresPassword(t *testing.T) {
	_, err := NewAuthService("", "test-secret")
	assert.Error(t, err)
}

package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRetryBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{7, time.Hour},
		{80, time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, computeRetryBackoff(tc.retry), "retry %d", tc.retry)
	}
}

func TestAuditoriaJobPayload_ToModel(t *testing.T) {
	uid := uuid.New()
	uidStr := uid.String()
	entidadID := "V-000001"
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	a := AuditoriaJobPayload{
		Accion:     "venta.create",
		Entidad:    "ventas",
		EntidadID:  &entidadID,
		Payload:    json.RawMessage(`{"total":"30.00"}`),
		UsuarioID:  &uidStr,
		OcurridoEn: at,
	}.ToModel()

	assert.Equal(t, "venta.create", a.Accion)
	assert.Equal(t, `{"total":"30.00"}`, a.Payload)
	require.NotNil(t, a.UsuarioID)
	assert.Equal(t, uid, *a.UsuarioID)
	assert.Equal(t, at, a.CreatedAt)
}

func TestAuditoriaJobPayload_ToModel_IgnoraUsuarioInvalido(t *testing.T) {
	bad := "not-a-uuid"

	a := AuditoriaJobPayload{Accion: "x", Entidad: "y", UsuarioID: &bad}.ToModel()

	assert.Nil(t, a.UsuarioID)
	assert.False(t, a.CreatedAt.IsZero())
}

func TestDispatcher_SinRedis(t *testing.T) {
	d := NewDispatcher(nil)

	err := d.EnqueueAuditoria(context.Background(), AuditoriaJobPayload{Accion: "x"})

	assert.ErrorIs(t, err, ErrSinCola)
}

package models_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
)

var testDBSeq int64

// setupTestDB installs a fresh in-memory database and returns a context
// scoped to owner 1.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	n := atomic.AddInt64(&testDBSeq, 1)
	conn, err := config.OpenSQLite(fmt.Sprintf("file:models_test_%d?mode=memory&cache=shared", n))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	previous := config.GetDB()
	config.UseDB(conn)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
		config.UseDB(previous)
	})
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return ownerCtx(1)
}

func ownerCtx(ownerId int) context.Context {
	return utils.SetOwnerIdInContext(context.Background(), ownerId)
}

func ptr[T any](v T) *T {
	return &v
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	verr, ok := err.(*models.ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	out := map[string]string{}
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

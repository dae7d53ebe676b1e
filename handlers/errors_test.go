package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"court_flow_app_go/models"
	"court_flow_app_go/services"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: claims missing", services.ErrValidation), http.StatusUnprocessableEntity, "validation"},
		{fmt.Errorf("%w: no subject matter", services.ErrIncompleteClosure), http.StatusUnprocessableEntity, "incomplete_closure"},
		{fmt.Errorf("%w: only the officer", services.ErrUnauthorized), http.StatusForbidden, "unauthorized"},
		{fmt.Errorf("%w: process p1", services.ErrNotFound), http.StatusNotFound, "not_found"},
		{&services.TransitionError{Stage: models.StageDraft, Event: models.EventAdmit}, http.StatusConflict, "invalid_transition"},
		{fmt.Errorf("%w: hearing is cancelled", services.ErrInvalidTransition), http.StatusConflict, "invalid_state"},
		{fmt.Errorf("%w: judgment", services.ErrAlreadyExists), http.StatusConflict, "already_exists"},
		{services.ErrDocumentAlreadySealed, http.StatusConflict, "already_sealed"},
		{services.ErrPersistenceConflict, http.StatusConflict, "conflict"},
		{services.ErrContentMismatch, http.StatusConflict, "content_mismatch"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, errorStatus(tt.err))
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}

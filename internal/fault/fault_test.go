package fault_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrWong99/nexusvoice/internal/fault"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want fault.Kind
	}{
		{"nil", nil, ""},
		{"validation", fault.Validation("op", "bad"), fault.KindValidation},
		{"wrapped not found", fmt.Errorf("outer: %w", fault.NotFound("op", "x")), fault.KindNotFound},
		{"turn error", fault.AtTurn(2, "Bob", fault.EmptyPayload("op", "empty")), fault.KindEmptyPayload},
		{"plain error", errors.New("boom"), fault.KindInternal},
		{"caller canceled", fmt.Errorf("render: %w", context.Canceled), fault.KindCanceled},
		{"classified wins over cancel", fault.Provider("op", context.Canceled), fault.KindProvider},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := fault.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorsIs_MatchesKindSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrap: %w", fault.Provider("synth", errors.New("503")))
	if !errors.Is(err, fault.ErrProvider) {
		t.Error("errors.Is(err, ErrProvider) = false, want true")
	}
	if errors.Is(err, fault.ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = true, want false")
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fault.Validation("op", "x"), http.StatusBadRequest},
		{fault.NotSupported("op", "x"), http.StatusBadRequest},
		{fault.NotFound("op", "x"), http.StatusBadRequest},
		{fault.EmptyPayload("op", "x"), http.StatusBadGateway},
		{fault.Provider("op", errors.New("down")), http.StatusBadGateway},
		{fault.Provider("op", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{fault.Internal("op", nil, "x"), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
		{context.Canceled, fault.StatusClientClosedRequest},
	}
	for _, tc := range tests {
		if got := fault.HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestTurnError_Message(t *testing.T) {
	t.Parallel()

	err := fault.AtTurn(1, "Bob", fault.NotFound("voice.resolve", "speaker %q is not registered", "Bob"))
	want := `turn 1 (Bob): voice.resolve: speaker "Bob" is not registered`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	var te *fault.TurnError
	if !errors.As(fmt.Errorf("render: %w", err), &te) {
		t.Fatal("errors.As did not find TurnError")
	}
	if te.Index != 1 || te.Kind() != fault.KindNotFound {
		t.Errorf("TurnError = {%d, %s}, want {1, not_found}", te.Index, te.Kind())
	}
}

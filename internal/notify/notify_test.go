package notify

import "testing"

type recordingSink struct {
	userID  int
	kind    string
	payload map[string]interface{}
}

func (s *recordingSink) Notify(userID int, kind string, payload map[string]interface{}) error {
	s.userID, s.kind, s.payload = userID, kind, payload
	return nil
}

func TestSetDefaultSwapsTheSink(t *testing.T) {
	original := Default
	defer SetDefault(original)

	rec := &recordingSink{}
	SetDefault(rec)

	if err := Default.Notify(7, "match_found", map[string]interface{}{"game_id": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.userID != 7 || rec.kind != "match_found" {
		t.Errorf("recordingSink did not receive the call: %+v", rec)
	}
}

func TestDefaultSinkIsLoggingByDefault(t *testing.T) {
	if _, ok := Default.(loggingSink); !ok {
		t.Errorf("Default = %T, want the package's loggingSink before any SetDefault call", Default)
	}
}

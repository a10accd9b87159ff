package app

import "testing"

func TestRunRecord(t *testing.T) {
	r := NewRunRecord("Backup", "source=/tmp/photos")

	if r.Status != "success" {
		t.Errorf("Status = %s, want success", r.Status)
	}
	if r.Persisted() {
		t.Error("Persisted() = true before the record is saved")
	}

	r.ID = 7
	if !r.Persisted() {
		t.Error("Persisted() = false after an ID was assigned")
	}
}

package nats

import (
	"encoding/json"
	"testing"

	"ReviewScanner/internal/domain"
)

func TestEncodeEvent(t *testing.T) {
	t.Parallel()

	report := domain.Aggregate("Acme", []domain.Label{domain.LabelFake, domain.LabelGenuine})
	report.ID = "r-1"
	report.ProductID = "B0ABCDEFGH"

	payload, err := EncodeEvent(report)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["type"] != "analysis.completed" {
		t.Fatalf("unexpected type: %v", decoded["type"])
	}
	body, ok := decoded["report"].(map[string]any)
	if !ok {
		t.Fatalf("missing report body: %v", decoded)
	}
	if body["product_id"] != "B0ABCDEFGH" || body["fake_percentage"] != 50.0 {
		t.Fatalf("unexpected report body: %v", body)
	}
}

func TestConnectFailsFast(t *testing.T) {
	t.Parallel()

	if _, err := Connect("nats://127.0.0.1:1", "subject", Options{}); err == nil {
		t.Fatalf("expected connection error")
	}
}

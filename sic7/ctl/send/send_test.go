package send

import (
	"math"
	"testing"
	"time"

	"github.com/Lzetgo0/SIC7/internal/pipeline"
)

func TestPayloadIsAcceptedByTheDaemon(t *testing.T) {
	payload, err := Payload(31.5, 62)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"hum":62,"temp":31.5}` {
		t.Errorf("payload = %s", payload)
	}

	r, err := pipeline.Decode(payload, time.Now())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if r.Temperature != 31.5 || r.Humidity != 62 {
		t.Errorf("decoded %+v", r)
	}
}

func TestPayloadRejectsNonFinite(t *testing.T) {
	if _, err := Payload(math.NaN(), 50); err == nil {
		t.Error("NaN temperature encoded")
	}
}

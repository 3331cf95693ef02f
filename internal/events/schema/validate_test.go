package schema

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewValidator_HHMM(t *testing.T) {
	v := NewValidator()

	valid := []string{"00:00", "08:30", "23:59", "24:00"}
	for _, s := range valid {
		assert.NoError(t, v.Struct(OpenWindowPayload{Open: s, Close: "24:00"}), s)
	}

	invalid := []string{"8:30", "24:01", "12:60", "noon", "12-30"}
	for _, s := range invalid {
		assert.Error(t, v.Struct(OpenWindowPayload{Open: s, Close: "24:00"}), s)
	}
}

func TestNewValidator_ListingUpserted(t *testing.T) {
	v := NewValidator()
	base := ListingUpsertedEvent{
		ListingID: uuid.New(),
		HostID:    uuid.New(),
		Schedule: map[string][]OpenWindowPayload{
			"monday": {{Open: "08:00", Close: "18:00"}},
		},
	}
	assert.NoError(t, v.Struct(base))

	missingHost := base
	missingHost.HostID = uuid.Nil
	assert.Error(t, v.Struct(missingHost))

	badWindow := base
	badWindow.Schedule = map[string][]OpenWindowPayload{"monday": {{Open: "8am", Close: "18:00"}}}
	assert.Error(t, v.Struct(badWindow))

	badPolicy := base
	badPolicy.CancellationPolicy = "lenient"
	assert.Error(t, v.Struct(badPolicy))
}

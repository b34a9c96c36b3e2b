package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTranscript_AppendKeepsOrder(t *testing.T) {
	tr := NewTranscript("answer briefly")

	tr.Append(Turn{Role: RoleUser, Text: "Q1"}, Turn{Role: RoleAssistant, Text: "A1"})
	tr.Append(Turn{Role: RoleUser, Text: "Q2"})

	turns := tr.Turns()
	assert.Equal(t, "answer briefly", tr.Instructions())
	assert.Len(t, turns, 3)
	assert.Equal(t, []string{"Q1", "A1", "Q2"}, []string{turns[0].Text, turns[1].Text, turns[2].Text})
	for _, turn := range turns {
		assert.False(t, turn.At.IsZero())
	}
	assert.False(t, tr.Updated().Before(tr.Created()))
}

func TestTranscript_TurnsIsCopy(t *testing.T) {
	tr := NewTranscript("")
	tr.Append(Turn{Role: RoleUser, Text: "hello"})

	turns := tr.Turns()
	turns[0].Text = "mutated"

	assert.Equal(t, "hello", tr.Turns()[0].Text)
}

func TestTranscript_PreservesTimestamp(t *testing.T) {
	tr := NewTranscript("")
	at := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	tr.Append(Turn{Role: RoleUser, Text: "x", At: at})

	assert.Equal(t, at, tr.Turns()[0].At)
}

func TestTranscript_ConcurrentAppend(t *testing.T) {
	tr := NewTranscript("")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(Turn{Role: RoleUser, Text: "x"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, tr.Len())
}

func TestFormat(t *testing.T) {
	out := Format([]Turn{{Role: RoleUser, Text: "Q"}, {Role: RoleAssistant, Text: "A"}})
	assert.Equal(t, "user: Q\nassistant: A", out)
	assert.Empty(t, Format(nil))
}

func TestLoggable(t *testing.T) {
	v := Loggable([]Turn{{Role: RoleUser, Text: "Q"}, {Role: RoleAssistant, Text: "A"}})
	assert.Equal(t, "user: Q\nassistant: A", v.LogValue().String())
}

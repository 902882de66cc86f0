package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marketplace-chat/internal/infrastructure/queue/port"
)

func TestParseQueueWeights(t *testing.T) {
	assert.Equal(t, map[string]int{"default": 1, "chat": 2, "maintenance": 1},
		parseQueueWeights("default=1, chat=2,maintenance"))
	assert.Equal(t, map[string]int{"low": 1}, parseQueueWeights("low=-3,,=4"))
	assert.Empty(t, parseQueueWeights(""))
}

func TestToAsynqOptions(t *testing.T) {
	assert.Nil(t, toAsynqOptions(nil))

	opts := toAsynqOptions([]port.EnqueueOption{{
		Queue:     "chat",
		ProcessIn: time.Minute,
		MaxRetry:  5,
		UniqueTTL: time.Hour,
	}})
	assert.Len(t, opts, 4)

	// ProcessAt wins over ProcessIn.
	opts = toAsynqOptions([]port.EnqueueOption{{ProcessAt: time.Now(), ProcessIn: time.Minute}})
	assert.Len(t, opts, 1)
}

func TestRedisOptRequiresURL(t *testing.T) {
	_, err := NewAsynqClient("")
	assert.Error(t, err)
	_, err = NewAsynqServer(ServerConfig{}, nil)
	assert.Error(t, err)
}

package session

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisStore_GenerateKey(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	store := NewRedisStore(client, "bookverse", time.Hour)

	assert.Equal(t, "bookverse:session:abc", store.GenerateKey("abc"))
}

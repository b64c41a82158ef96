package memory

import (
	"strconv"
	"time"

	"ai-finance-assistant-be/pkg/rag/prompt"

	"github.com/patrickmn/go-cache"
)

// ConversationContext is what the assistant needs from a chat to answer
// the next question.
type ConversationContext struct {
	RecentTurns   []prompt.Turn
	Summary       string
	LastMessageId *uint
}

// ConversationCache keeps the conversation context per chat so follow-up
// questions skip the history query.
type ConversationCache struct {
	cache *cache.Cache
}

func NewConversationCache(ttl time.Duration) *ConversationCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &ConversationCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *ConversationCache) Save(chatId uint, conv *ConversationContext) {
	r.cache.Set(key(chatId), conv, cache.DefaultExpiration)
}

func (r *ConversationCache) Get(chatId uint) (*ConversationContext, bool) {
	if x, found := r.cache.Get(key(chatId)); found {
		return x.(*ConversationContext), true
	}
	return nil, false
}

func (r *ConversationCache) Delete(chatId uint) {
	r.cache.Delete(key(chatId))
}

func key(chatId uint) string {
	return strconv.FormatUint(uint64(chatId), 10)
}

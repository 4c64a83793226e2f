package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefixBatch  = "relaybot:batch:"
	keyPrefixSingle = "relaybot:single:"
	keyPrefixStats  = "relaybot:stats:"
	keyStatsChatIDs = "relaybot:stats_chats"
)

// ForwardedBatch records where a media group was relayed to.
type ForwardedBatch struct {
	Destination int64        `json:"destination"`
	Handles     []SentHandle `json:"handles"`
}

// ForwardedSingle records where a single message was relayed to.
type ForwardedSingle struct {
	Destination int64      `json:"destination"`
	Handle      SentHandle `json:"handle"`
}

type singleKey struct {
	chatID    int64
	messageID int
}

type groupBuffer struct {
	items   []IncomingMessage
	created time.Time
}

// Store holds the relay state, backed by Valkey/Redis when an address is
// provided, or falling back to in-memory storage when addr is empty.
type Store struct {
	client *redis.Client
	ctx    context.Context

	// In-memory storage (used when client is nil).
	mu      sync.RWMutex
	batches map[string]ForwardedBatch
	singles map[singleKey]ForwardedSingle
	stats   map[int64]ChatStats

	// Media group buffers are always kept in-memory regardless of backend.
	bufMu   sync.Mutex
	buffers map[string]*groupBuffer
	now     func() time.Time
}

// NewStore creates a Store backed by Valkey at addr, or in-memory if addr is
// empty.
func NewStore(addr string) *Store {
	s := &Store{
		ctx:     context.Background(),
		batches: make(map[string]ForwardedBatch),
		singles: make(map[singleKey]ForwardedSingle),
		stats:   make(map[int64]ChatStats),
		buffers: make(map[string]*groupBuffer),
		now:     time.Now,
	}
	if addr != "" {
		s.client = redis.NewClient(&redis.Options{Addr: addr})
		if err := s.client.Ping(s.ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("failed to connect to Valkey, falling back to in-memory store")
			s.client = nil
		} else {
			log.Info().Str("addr", addr).Msg("connected to Valkey")
		}
	}
	return s
}

// Close releases the backend connection, if any.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// ── Media group buffers ───────────────────────────────────────────────────────

// AppendToBuffer adds msg to its group's buffer, creating it if needed. A
// message already buffered (same ID) is replaced in place. Returns the
// buffer size after the operation.
func (s *Store) AppendToBuffer(groupID string, msg IncomingMessage) int {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	buf, ok := s.buffers[groupID]
	if !ok {
		buf = &groupBuffer{created: s.now()}
		s.buffers[groupID] = buf
	}
	for i, m := range buf.items {
		if m.ID == msg.ID {
			buf.items[i] = msg
			return len(buf.items)
		}
	}
	buf.items = append(buf.items, msg)
	return len(buf.items)
}

// TakeBuffer removes a group's buffer and returns its items in arrival order.
func (s *Store) TakeBuffer(groupID string) []IncomingMessage {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	buf, ok := s.buffers[groupID]
	if !ok {
		return nil
	}
	delete(s.buffers, groupID)
	return buf.items
}

// ClearBuffer drops a group's buffer without returning it.
func (s *Store) ClearBuffer(groupID string) {
	s.bufMu.Lock()
	delete(s.buffers, groupID)
	s.bufMu.Unlock()
}

// BufferSizes returns the number of buffered items per group.
func (s *Store) BufferSizes() map[string]int {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	out := make(map[string]int, len(s.buffers))
	for id, buf := range s.buffers {
		out[id] = len(buf.items)
	}
	return out
}

// SweepBuffers drops buffers older than ttl for which keep returns false.
// Returns the number of dropped buffers.
func (s *Store) SweepBuffers(ttl time.Duration, keep func(groupID string) bool) int {
	cutoff := s.now().Add(-ttl)
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	n := 0
	for id, buf := range s.buffers {
		if buf.created.After(cutoff) || (keep != nil && keep(id)) {
			continue
		}
		delete(s.buffers, id)
		n++
	}
	return n
}

// ── Forwarded batches ─────────────────────────────────────────────────────────

// GetBatch returns the forwarded batch recorded for a media group.
func (s *Store) GetBatch(groupID string) (ForwardedBatch, bool) {
	if s.client != nil {
		val, err := s.client.Get(s.ctx, keyPrefixBatch+groupID).Result()
		if err == redis.Nil {
			return ForwardedBatch{}, false
		} else if err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: get batch")
			return ForwardedBatch{}, false
		}
		var batch ForwardedBatch
		if err := json.Unmarshal([]byte(val), &batch); err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: unmarshal batch")
			return ForwardedBatch{}, false
		}
		return batch, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[groupID]
	return batch, ok
}

// HasBatch reports whether a media group has already been forwarded.
func (s *Store) HasBatch(groupID string) bool {
	if s.client != nil {
		n, err := s.client.Exists(s.ctx, keyPrefixBatch+groupID).Result()
		if err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: exists batch")
			return false
		}
		return n > 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.batches[groupID]
	return ok
}

// SaveBatch records a forwarded batch unless one already exists for the
// group. Returns true if the batch was stored.
func (s *Store) SaveBatch(groupID string, batch ForwardedBatch) bool {
	if s.client != nil {
		data, err := json.Marshal(batch)
		if err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: marshal batch")
			return false
		}
		ok, err := s.client.SetNX(s.ctx, keyPrefixBatch+groupID, data, 0).Result()
		if err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: set batch")
			return false
		}
		return ok
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[groupID]; ok {
		return false
	}
	s.batches[groupID] = batch
	return true
}

// ForgetBatch removes a forwarded batch record.
func (s *Store) ForgetBatch(groupID string) {
	if s.client != nil {
		if err := s.client.Del(s.ctx, keyPrefixBatch+groupID).Err(); err != nil {
			log.Error().Err(err).Str("group", groupID).Msg("store: delete batch")
		}
		return
	}
	s.mu.Lock()
	delete(s.batches, groupID)
	s.mu.Unlock()
}

// ── Forwarded single messages ─────────────────────────────────────────────────

func singleRedisKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%s%d:%d", keyPrefixSingle, chatID, messageID)
}

// GetSingle returns where a single message was relayed to.
func (s *Store) GetSingle(chatID int64, messageID int) (ForwardedSingle, bool) {
	if s.client != nil {
		val, err := s.client.Get(s.ctx, singleRedisKey(chatID, messageID)).Result()
		if err == redis.Nil {
			return ForwardedSingle{}, false
		} else if err != nil {
			log.Error().Err(err).Int64("chat", chatID).Int("message", messageID).Msg("store: get single")
			return ForwardedSingle{}, false
		}
		var single ForwardedSingle
		if err := json.Unmarshal([]byte(val), &single); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Int("message", messageID).Msg("store: unmarshal single")
			return ForwardedSingle{}, false
		}
		return single, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	single, ok := s.singles[singleKey{chatID, messageID}]
	return single, ok
}

// SaveSingle records where a single message was relayed to.
func (s *Store) SaveSingle(chatID int64, messageID int, single ForwardedSingle) {
	if s.client != nil {
		data, err := json.Marshal(single)
		if err != nil {
			log.Error().Err(err).Int64("chat", chatID).Int("message", messageID).Msg("store: marshal single")
			return
		}
		if err := s.client.Set(s.ctx, singleRedisKey(chatID, messageID), data, 0).Err(); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Int("message", messageID).Msg("store: set single")
		}
		return
	}
	s.mu.Lock()
	s.singles[singleKey{chatID, messageID}] = single
	s.mu.Unlock()
}

// ── Chat stats ────────────────────────────────────────────────────────────────

// IncrementStats adds one to every given kind for a chat.
func (s *Store) IncrementStats(chatID int64, kinds []StatKind) {
	if len(kinds) == 0 {
		return
	}
	if s.client != nil {
		key := fmt.Sprintf("%s%d", keyPrefixStats, chatID)
		pipe := s.client.Pipeline()
		for _, k := range kinds {
			pipe.HIncrBy(s.ctx, key, string(k), 1)
		}
		pipe.SAdd(s.ctx, keyStatsChatIDs, chatID)
		if _, err := pipe.Exec(s.ctx); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("store: increment stats")
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.stats[chatID]
	if !ok {
		stats = newChatStats()
		s.stats[chatID] = stats
	}
	for _, k := range kinds {
		stats[k]++
	}
}

// GetStats returns the counters of a chat; unseen chats report zeroes.
func (s *Store) GetStats(chatID int64) ChatStats {
	out := newChatStats()
	if s.client != nil {
		key := fmt.Sprintf("%s%d", keyPrefixStats, chatID)
		vals, err := s.client.HGetAll(s.ctx, key).Result()
		if err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("store: get stats")
			return out
		}
		for k, v := range vals {
			n, err := strconv.Atoi(v)
			if err != nil {
				continue
			}
			out[StatKind(k)] = n
		}
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.stats[chatID] {
		out[k] = v
	}
	return out
}

// ResetStats clears the counters of a chat.
func (s *Store) ResetStats(chatID int64) {
	if s.client != nil {
		key := fmt.Sprintf("%s%d", keyPrefixStats, chatID)
		pipe := s.client.Pipeline()
		pipe.Del(s.ctx, key)
		pipe.SRem(s.ctx, keyStatsChatIDs, chatID)
		if _, err := pipe.Exec(s.ctx); err != nil {
			log.Error().Err(err).Int64("chat", chatID).Msg("store: reset stats")
		}
		return
	}
	s.mu.Lock()
	delete(s.stats, chatID)
	s.mu.Unlock()
}

// AllStats returns the counters of every observed chat.
func (s *Store) AllStats() map[int64]ChatStats {
	if s.client != nil {
		ids, err := s.client.SMembers(s.ctx, keyStatsChatIDs).Result()
		if err != nil {
			log.Error().Err(err).Msg("store: list stats chat IDs")
			return nil
		}
		result := make(map[int64]ChatStats, len(ids))
		for _, idStr := range ids {
			chatID, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			result[chatID] = s.GetStats(chatID)
		}
		return result
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[int64]ChatStats, len(s.stats))
	for chatID, stats := range s.stats {
		cp := newChatStats()
		for k, v := range stats {
			cp[k] = v
		}
		result[chatID] = cp
	}
	return result
}

package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const defaultTagTTL = 30 * time.Second

// ContactTagCache stores hot-path contact tag lookups for rule resolution.
// Entries are short-lived so a tag change is picked up within one TTL.
type ContactTagCache interface {
	GetTag(contactID snowflake.ID) (string, bool)
	SetTag(contactID snowflake.ID, tag string)
	Invalidate(contactID snowflake.ID)
}

type contactTagCache struct {
	tags Cache[snowflake.ID, string]
	ttl  time.Duration
}

// NewContactTagCache returns an in-memory cache tuned for resolver lookups.
func NewContactTagCache() ContactTagCache {
	return &contactTagCache{
		tags: NewTTLCache[snowflake.ID, string](),
		ttl:  defaultTagTTL,
	}
}

func (c *contactTagCache) GetTag(contactID snowflake.ID) (string, bool) {
	return c.tags.Get(contactID)
}

func (c *contactTagCache) SetTag(contactID snowflake.ID, tag string) {
	if contactID == 0 {
		return
	}
	c.tags.Set(contactID, tag, c.ttl)
}

func (c *contactTagCache) Invalidate(contactID snowflake.ID) {
	c.tags.Delete(contactID)
}

package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize is the minimum LRU capacity spec §4.2 requires ("bounded size
// (LRU, ≥1000 entries)"). No teacher equivalent exists; grounded on
// orbas1-Synnergy's hashicorp/golang-lru/v2 dependency.
const cacheSize = 4096

// Caches holds the bounded in-memory views storage.Reader's doc comment
// promises: readers populated after a commit succeeds see either the
// pre-commit or post-commit view, never a torn mix (spec §5 "shared
// resource policy"). Every cache write in this package happens AFTER the
// corresponding bbolt transaction commits, never before.
type Caches struct {
	unitProps   *lru.Cache[string, cachedUnitProps]
	staticProps *lru.Cache[string, cachedStaticProps]
}

type cachedUnitProps struct {
	bestParent     string
	level          int64
	witnessedLevel int64
}

type cachedStaticProps = cachedUnitProps

// NewCaches builds the LRU caches; lru.New only errors on non-positive
// size, which cacheSize never is, so the error is deliberately swallowed
// the way the teacher treats other can't-fail constructor paths.
func NewCaches() *Caches {
	unitProps, _ := lru.New[string, cachedUnitProps](cacheSize)
	staticProps, _ := lru.New[string, cachedStaticProps](cacheSize)
	return &Caches{unitProps: unitProps, staticProps: staticProps}
}

func (c *Caches) putStatic(unitID string, bestParent string, level, witnessedLevel int64) {
	c.staticProps.Add(unitID, cachedStaticProps{bestParent: bestParent, level: level, witnessedLevel: witnessedLevel})
}

func (c *Caches) getStatic(unitID string) (cachedStaticProps, bool) {
	return c.staticProps.Get(unitID)
}

// invalidate drops a unit from every cache; used on rollback so a
// speculatively-populated cache entry from an aborted batch never survives
// (spec §4.2 "on partial failure the in-memory caches populated
// speculatively MUST be rolled back").
func (c *Caches) invalidate(unitID string) {
	c.unitProps.Remove(unitID)
	c.staticProps.Remove(unitID)
}

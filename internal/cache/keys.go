package cache

import "fmt"

// Cache keys are built from parts joined with ':': a family prefix, the
// resource id (or "all"), and the owner id. The owner id is always part of the
// key, so prefix invalidation for one owner can never touch another
// owner's entries, and a family pattern can never match a different
// family.
//
// The exact formats are shared state: any service reading or invalidating
// this cache must produce byte-identical keys.

// EntriesKey is the cache key for a user's full entry collection.
func EntriesKey(ownerID int64) string {
	return fmt.Sprintf("entries:user:%d:all", ownerID)
}

// EntryKey is the cache key for a single entry scoped to its owner.
func EntryKey(entryID, ownerID int64) string {
	return fmt.Sprintf("entry:%d:user:%d", entryID, ownerID)
}

// ChatKey is the cache key for an assistant response, keyed by a digest of
// the user's message.
func ChatKey(ownerID int64, digest string) string {
	return fmt.Sprintf("chat:user:%d:%s", ownerID, digest)
}

// ownerPatterns returns the glob patterns covering every cache family
// scoped to one owner, one pattern per family.
func ownerPatterns(ownerID int64) []string {
	return []string{
		fmt.Sprintf("entries:user:%d:*", ownerID),
		fmt.Sprintf("entry:*:user:%d", ownerID),
		fmt.Sprintf("chat:user:%d:*", ownerID),
	}
}

/*
Package storage provides the hierarchical key-value tree that holds all
primeslot state, persisted in a single BoltDB file.

The tree is addressed by slash-separated paths such as
/meetings/{eventId}/{meetingId}. Objects become nested BoltDB buckets and
every leaf (string, number, bool, array) is stored as a JSON value, so a
subtree can be read back as one JSON document and decoded into a Go struct.

# Architecture

	┌─────────────────────── TREE STORE ───────────────────────┐
	│                                                           │
	│  bucket "tree"                                            │
	│   ├── events/{id}/title            "Breakfast Club"       │
	│   ├── meetings/{eventId}/{id}/     (bucket)               │
	│   │      ├── aId                   "m-1"                  │
	│   │      ├── scheduledAt           1760000000000          │
	│   │      └── status                "pending"              │
	│   ├── memberMeetings/{memberId}/{eventId}/{id}/ (mirror)  │
	│   └── notifications/{recipientId}/{pushKey}/              │
	│                                                           │
	│  Writes: db.Update (serialized, all-or-nothing)           │
	│  Reads:  db.View   (concurrent, consistent snapshot)      │
	└───────────────────────────────────────────────────────────┘

# Semantics

  - Set replaces the whole subtree at a path. Writing null or an empty
    object removes it.
  - Update merges the named children of a path and leaves the rest alone.
  - Remove deletes a subtree and prunes ancestors that became empty, so
    an empty object never exists in the tree.
  - Push stores a value under a fresh time-ordered key (UUIDv7); keys
    pushed later sort after earlier ones.
  - MultiUpdate writes several absolute paths in one transaction. Paths
    may not overlap (one path an ancestor of another).
  - Transact hands the caller a Tx for read-modify-write sequences, which
    is how status transitions avoid check-then-act races.

Keys may not contain '.', '#', '$', '[', ']', '/' or control characters.
A value and a bucket cannot share a key; writing one replaces the other.

# Usage

	store, err := storage.NewBoltStore(dataDir, storage.Options{Timeout: 5 * time.Second})
	if err != nil {
		return err
	}
	defer store.Close()

	err = store.Transact(ctx, func(tx storage.Tx) error {
		var status string
		found, err := tx.Get(storage.MeetingPath(eventID, meetingID)+"/status", &status)
		if err != nil || !found {
			return err
		}
		return tx.Set(storage.MeetingPath(eventID, meetingID)+"/status", "approved")
	})

Every Store method checks its context before touching the database; a
transaction whose context ends while fn runs is rolled back.
*/
package storage

package handlers

import (
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/index"
)

// sessionIndex lazily opens the session's share's index store, per
// §4.7: shares that never call CreateIndex never pay for a badger
// instance.
func sessionIndex(sess *Session) (*index.Store, error) {
	if sess.Index != nil {
		return sess.Index, nil
	}
	store, err := sess.OpenIndexes(sess.Share.Name)
	if err != nil {
		return nil, shareerr.NewIOError(sess.Share.Name, err)
	}
	sess.Index = store
	return store, nil
}

func handleReadIndexDir(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	cookie, err := req.Args[1].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		return errReply(req.XID, err)
	}

	entries, next, err := store.ReadIndexDir(name, uint64(cookie), maxDirEntriesPerReply)
	if err != nil {
		return errReply(req.XID, err)
	}
	if len(entries) == 0 {
		return statusReply(req.XID, shareerr.StatusENOENT)
	}

	w := payloadWriter{}
	for _, e := range entries {
		w.PutUint64(e.Vnid)
		w.PutUint64(e.ParentVnid)
		w.PutString(e.Name)
		w.PutUint64(next)
	}
	return okReply(req.XID, w.Bytes())
}

func handleCreateIndex(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	typ, err := req.Args[1].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		return errReply(req.XID, err)
	}
	if err := store.CreateIndex(name, index.Type(typ)); err != nil {
		return errReply(req.XID, err)
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleRemoveIndex(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		return errReply(req.XID, err)
	}
	if err := store.RemoveIndex(name); err != nil {
		return errReply(req.XID, err)
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleStatIndex(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		return errReply(req.XID, err)
	}
	typ, err := store.StatIndex(name)
	if err != nil {
		return errReply(req.XID, err)
	}

	w := payloadWriter{}
	w.PutUint32(uint32(typ))
	return okReply(req.XID, w.Bytes())
}

// handleReadQuery answers a live query against the index the query
// string's leading index name selects. The legacy protocol's queries
// are scoped to a single well-known index per share (§9 open question
// #4's sibling simplification, documented in SPEC_FULL.md); this
// reimplementation requires the query string to name its index as
// "<indexName>:<query>".
func handleReadQuery(sess *Session, req wire.Request) *wire.Response {
	cookie, err := req.Args[0].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	raw, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	indexName, query, ok := splitQuery(raw)
	if !ok {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	store, err := sessionIndex(sess)
	if err != nil {
		return errReply(req.XID, err)
	}
	all, err := store.ReadQuery(indexName, query)
	if err != nil {
		return errReply(req.XID, err)
	}

	skip := int(cookie)
	if skip >= len(all) {
		return statusReply(req.XID, shareerr.StatusENOENT)
	}
	page := all[skip:]
	if len(page) > maxDirEntriesPerReply {
		page = page[:maxDirEntriesPerReply]
	}

	w := payloadWriter{}
	for i, e := range page {
		w.PutUint64(e.Vnid)
		w.PutUint64(e.ParentVnid)
		w.PutString(e.Name)
		w.PutUint64(uint64(skip + i + 1))
	}
	return okReply(req.XID, w.Bytes())
}

func splitQuery(raw string) (indexName, query string, ok bool) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return raw[:i], raw[i+1:], true
		}
	}
	return "", "", false
}

package handlers

import (
	"strings"

	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/attrstore"
)

// trkPrefix is the legacy client convenience filter (§4.7.2, §9 open
// question #3): attribute names under this prefix are hidden from
// ReadAttrib/ReadAttribDir as if they did not exist.
const trkPrefix = "_trk/"

func handleReadAttrib(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	_, err = req.Args[2].Int64() // attribute type tag: advisory, not enforced server-side
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	pos, err := req.Args[3].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	length, err := req.Args[4].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	if strings.HasPrefix(name, trkPrefix) {
		return errReply(req.XID, shareerr.NewNotFound(name))
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	value, err := attrstore.Get(path, name)
	if err != nil {
		return errReply(req.XID, err)
	}
	start := int(pos)
	if start > len(value) {
		start = len(value)
	}
	end := len(value)
	if length >= 0 && start+int(length) < end {
		end = start + int(length)
	}

	w := payloadWriter{}
	w.PutBytes(value[start:end])
	return okReply(req.XID, w.Bytes())
}

func handleWriteAttrib(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	_, err = req.Args[2].Int64() // attribute type tag: advisory, not enforced server-side
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	chunk, err := req.Args[3].Bytes()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	pos, err := req.Args[4].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	_, err = req.Args[5].Int32() // len: implied by len(chunk)
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	existing, getErr := attrstore.Get(path, name)
	if getErr != nil {
		existing = nil
	}
	data := spliceAt(existing, int(pos), chunk)

	if err := attrstore.Set(path, name, data); err != nil {
		return errReply(req.XID, err)
	}

	w := payloadWriter{}
	w.PutUint32(uint32(len(chunk)))
	return okReply(req.XID, w.Bytes())
}

// spliceAt overlays overlay onto base starting at pos, growing base
// with zero bytes if pos falls past its current end. This lets
// WriteAttrib patch a sub-range of an existing attribute value the
// way the legacy call's pos/len pair implies, instead of always
// replacing the whole value.
func spliceAt(base []byte, pos int, overlay []byte) []byte {
	need := pos + len(overlay)
	if need > len(base) {
		grown := make([]byte, need)
		copy(grown, base)
		base = grown
	}
	copy(base[pos:], overlay)
	return base
}

func handleReadAttribDir(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	cookie, err := req.Args[1].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	all, err := attrstore.List(path)
	if err != nil {
		return errReply(req.XID, err)
	}

	var visible []string
	for _, name := range all {
		if !strings.HasPrefix(name, trkPrefix) {
			visible = append(visible, name)
		}
	}

	skip := int(cookie)
	if skip >= len(visible) {
		return statusReply(req.XID, shareerr.StatusENOENT)
	}
	page := visible[skip:]
	if len(page) > maxDirEntriesPerReply {
		page = page[:maxDirEntriesPerReply]
	}

	w := payloadWriter{}
	for i, name := range page {
		w.PutString(name)
		w.PutUint64(uint64(skip + i + 1))
	}
	return okReply(req.XID, w.Bytes())
}

func handleRemoveAttrib(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	if err := attrstore.Remove(path, name); err != nil {
		return errReply(req.XID, err)
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleStatAttrib(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	value, err := attrstore.Get(path, name)
	if err != nil {
		return errReply(req.XID, err)
	}

	w := payloadWriter{}
	w.PutUint32(uint32(wire.ArgTypeRaw))
	w.PutUint64(uint64(len(value)))
	return okReply(req.XID, w.Bytes())
}

package handlers

import (
	"os"
	"syscall"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/share"
	"github.com/sharewire/sharewire/pkg/vnode"
)

// handlePreMount answers the auth-class probe a client sends before
// Mount. Unlike every other command, its success payload IS the status
// field: 0 for share.AuthNone, 1 for share.AuthExternal (§4.7's table).
func handlePreMount(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	sh, _, ok := sess.Shares.ByName(name)
	if !ok {
		return errReply(req.XID, shareerr.NewNotFound(name))
	}
	return statusReply(req.XID, int32(sh.AuthClass))
}

func handleMount(sess *Session, req wire.Request) *wire.Response {
	name, err := req.Args[0].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	user, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	token, err := req.Args[2].Bytes()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	sh, idx, ok := sess.Shares.ByName(name)
	if !ok {
		return errReply(req.XID, shareerr.NewNotFound(name))
	}

	info, statErr := os.Stat(sh.LocalPath)
	if statErr != nil {
		return errReply(req.XID, mapOSErr(sh.LocalPath, statErr))
	}

	rights, err := share.ComputeRights(sh, user, string(token), sess.Auth)
	if err != nil {
		logger.Warn("mount rejected", logger.Share(name), logger.Principal(user), logger.Err(err))
		return errReply(req.XID, err)
	}

	sess.bindShare(sh, idx, user, rights)
	rootVnid := vnode.VnidFromInfo(info)
	sess.Vnodes.AddHandle(vnode.RootVnid, rootVnid, "")

	w := payloadWriter{}
	w.PutUint64(rootVnid)
	return okReply(req.XID, w.Bytes())
}

func handleFSInfo(sess *Session, req wire.Request) *wire.Response {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(sess.Share.LocalPath, &stat); err != nil {
		return errReply(req.XID, mapOSErr(sess.Share.LocalPath, err))
	}

	w := payloadWriter{}
	w.PutUint64(uint64(stat.Bsize))
	w.PutUint64(stat.Blocks)
	w.PutUint64(stat.Bfree)
	return okReply(req.XID, w.Bytes())
}

func handleQuit(sess *Session, req wire.Request) *wire.Response {
	sess.Teardown()
	sess.Killed.Store(true)
	return statusReply(req.XID, shareerr.StatusOK)
}

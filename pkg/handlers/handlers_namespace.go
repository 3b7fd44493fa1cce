package handlers

import (
	"os"
	"syscall"
	"time"

	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
	"github.com/sharewire/sharewire/pkg/vnode"
)

// statFromInfo builds the wire Stat tuple from a host os.FileInfo.
func statFromInfo(info os.FileInfo) wire.Stat {
	mtime := uint32(info.ModTime().Unix())
	s := wire.Stat{
		Size:  uint64(info.Size()),
		Mode:  uint32(info.Mode()),
		Mtime: mtime,
		Ctime: mtime,
		Atime: mtime,
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		s.Nlink = uint32(st.Nlink)
		s.UID = st.Uid
		s.GID = st.Gid
		s.Blksize = uint32(st.Blksize)
		s.Rdev = uint32(st.Rdev)
		s.Ino = st.Ino
		s.Atime = uint32(st.Atim.Sec)
		s.Mtime = uint32(st.Mtim.Sec)
		s.Ctime = uint32(st.Ctim.Sec)
	}
	return s
}

func handleLookup(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	target := dirPath + "/" + name

	info, err := os.Lstat(target)
	if err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}

	fileVnid := vnode.VnidFromInfo(info)
	sess.Vnodes.AddHandle(dirVnid, fileVnid, name)

	w := payloadWriter{}
	w.PutUint64(fileVnid)
	w.PutStat(statFromInfo(info))
	return okReply(req.XID, w.Bytes())
}

func handleStat(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	info, err := os.Lstat(path)
	if err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}

	w := payloadWriter{}
	w.PutStat(statFromInfo(info))
	return okReply(req.XID, w.Bytes())
}

// maxDirEntriesPerReply bounds a ReadDir/ReadAttribDir reply to 32
// records, per §4.7.2.
const maxDirEntriesPerReply = 32

func handleReadDir(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	cookie, err := req.Args[1].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return errReply(req.XID, mapOSErr(dirPath, err))
	}

	skip := int(cookie)
	if skip >= len(entries) {
		return statusReply(req.XID, shareerr.StatusENOENT)
	}

	page := entries[skip:]
	if len(page) > maxDirEntriesPerReply {
		page = page[:maxDirEntriesPerReply]
	}

	w := payloadWriter{}
	for i, e := range page {
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		vnid := vnode.VnidFromInfo(info)
		sess.Vnodes.AddHandle(dirVnid, vnid, e.Name())

		w.PutUint64(vnid)
		w.PutString(e.Name())
		w.PutUint64(uint64(skip + i + 1))
		w.PutStat(statFromInfo(info))
	}
	return okReply(req.XID, w.Bytes())
}

func handleCreate(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	openFlags, err := req.Args[2].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	perms, err := req.Args[3].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	target := dirPath + "/" + name

	flags := os.O_RDWR | os.O_CREATE
	if openFlags&int32(os.O_EXCL) != 0 {
		flags |= os.O_EXCL
	}
	if openFlags&int32(os.O_TRUNC) != 0 {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(target, flags, os.FileMode(perms)&os.ModePerm)
	if err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}

	fileVnid := vnode.VnidFromInfo(info)
	sess.Vnodes.AddHandle(dirVnid, fileVnid, name)

	w := payloadWriter{}
	w.PutUint64(fileVnid)
	w.PutStat(statFromInfo(info))
	return okReply(req.XID, w.Bytes())
}

func handleTruncate(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	newLen, err := req.Args[1].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	if err := os.Truncate(path, newLen); err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleMkDir(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	perms, err := req.Args[2].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	target := dirPath + "/" + name

	if err := os.Mkdir(target, os.FileMode(perms)&os.ModePerm); err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}
	info, err := os.Lstat(target)
	if err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}

	fileVnid := vnode.VnidFromInfo(info)
	sess.Vnodes.AddHandle(dirVnid, fileVnid, name)

	w := payloadWriter{}
	w.PutUint64(fileVnid)
	w.PutStat(statFromInfo(info))
	return okReply(req.XID, w.Bytes())
}

func handleRmDir(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	target := dirPath + "/" + name

	info, lerr := os.Lstat(target)
	if err := os.Remove(target); err != nil {
		if pe, ok := err.(*os.PathError); ok && pe.Err == syscall.ENOTEMPTY {
			return errReply(req.XID, shareerr.NewNotEmpty(target))
		}
		return errReply(req.XID, mapOSErr(target, err))
	}
	if lerr == nil {
		sess.Vnodes.PurgeSubtree(vnode.VnidFromInfo(info))
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleRename(sess *Session, req wire.Request) *wire.Response {
	oldDirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	oldName, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	newDirVnid, err := vnidArg(req.Args[2])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	newName, err := req.Args[3].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	oldDirPath, err := sess.resolvePath(oldDirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	newDirPath, err := sess.resolvePath(newDirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	oldPath := oldDirPath + "/" + oldName
	newPath := newDirPath + "/" + newName
	if err := os.Rename(oldPath, newPath); err != nil {
		return errReply(req.XID, mapOSErr(oldPath, err))
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleUnlink(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	target := dirPath + "/" + name

	info, lerr := os.Lstat(target)
	if err := os.Remove(target); err != nil {
		return errReply(req.XID, mapOSErr(target, err))
	}
	if lerr == nil {
		sess.Vnodes.RemoveHandle(vnode.VnidFromInfo(info))
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

func handleReadLink(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	target, err := os.Readlink(path)
	if err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}

	w := payloadWriter{}
	w.PutString(target)
	return okReply(req.XID, w.Bytes())
}

func handleSymLink(sess *Session, req wire.Request) *wire.Response {
	dirVnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	name, err := req.Args[1].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	target, err := req.Args[2].String()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	dirPath, err := sess.resolvePath(dirVnid)
	if err != nil {
		return errReply(req.XID, err)
	}
	linkPath := dirPath + "/" + name

	if err := os.Symlink(target, linkPath); err != nil {
		return errReply(req.XID, mapOSErr(linkPath, err))
	}
	return statusReply(req.XID, shareerr.StatusOK)
}

// wstatMask bits select which fields of the WStat request apply,
// mirroring the legacy BT_WSTAT_* bit flags.
const (
	wstatMode = 1 << iota
	wstatUID
	wstatGID
	wstatSize
	wstatAtime
	wstatMtime
)

func handleWStat(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	mask, err := req.Args[1].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	mode, err := req.Args[2].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	uid, err := req.Args[3].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	gid, err := req.Args[4].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	size, err := req.Args[5].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	atime, err := req.Args[6].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	mtime, err := req.Args[7].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	if mask&wstatMode != 0 {
		if err := os.Chmod(path, os.FileMode(uint32(mode))&os.ModePerm); err != nil {
			return errReply(req.XID, mapOSErr(path, err))
		}
	}
	if mask&(wstatUID|wstatGID) != 0 {
		chownUID, chownGID := -1, -1
		if mask&wstatUID != 0 {
			chownUID = int(uid)
		}
		if mask&wstatGID != 0 {
			chownGID = int(gid)
		}
		if err := os.Chown(path, chownUID, chownGID); err != nil {
			return errReply(req.XID, mapOSErr(path, err))
		}
	}
	if mask&wstatSize != 0 {
		if err := os.Truncate(path, size); err != nil {
			return errReply(req.XID, mapOSErr(path, err))
		}
	}
	if mask&(wstatAtime|wstatMtime) != 0 {
		info, err := os.Lstat(path)
		if err != nil {
			return errReply(req.XID, mapOSErr(path, err))
		}
		newAtime, newMtime := statFromInfo(info).Atime, info.ModTime()
		if mask&wstatAtime != 0 {
			newAtime = uint32(atime)
		}
		if mask&wstatMtime != 0 {
			newMtime = timeFromUnix(uint32(mtime))
		}
		if err := os.Chtimes(path, timeFromUnix(newAtime), newMtime); err != nil {
			return errReply(req.XID, mapOSErr(path, err))
		}
	}

	return statusReply(req.XID, shareerr.StatusOK)
}

func timeFromUnix(sec uint32) time.Time {
	return time.Unix(int64(sec), 0)
}

package handlers

import (
	"os"

	"github.com/sharewire/sharewire/internal/logger"
	"github.com/sharewire/sharewire/internal/shareerr"
	"github.com/sharewire/sharewire/internal/wire"
)

func handleRead(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	pos, err := req.Args[1].Int64()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	length, err := req.Args[2].Int32()
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}
	if length < 0 || int(length) > wire.MaxIOBuffer {
		length = wire.MaxIOBuffer
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, pos)
	if err != nil && n == 0 {
		return errReply(req.XID, mapOSErr(path, err))
	}

	w := payloadWriter{}
	w.PutBytes(buf[:n])
	return okReply(req.XID, w.Bytes())
}

// handleWrite implements the gathered-write protocol (§4.7.1). It
// never produces a reply frame: the first chunk for a vnid carries
// totalLen > 0 and opens a write block; later chunks carry totalLen ==
// 0 and append to it. A failed Append is logged here and otherwise
// dropped — it surfaces to the client only when Commit replies.
func handleWrite(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		logger.Warn("write chunk with invalid vnid argument", logger.XID(req.XID))
		return nil
	}
	pos, err := req.Args[1].Int64()
	if err != nil {
		return nil
	}
	_, err = req.Args[2].Int32() // chunkLen: implied by len(bytes)
	if err != nil {
		return nil
	}
	totalLen, err := req.Args[3].Int64()
	if err != nil {
		return nil
	}
	data, err := req.Args[4].Bytes()
	if err != nil {
		return nil
	}

	if totalLen > 0 {
		if err := sess.Writes.Begin(vnid, pos, totalLen); err != nil {
			logger.Warn("write block begin failed", logger.Vnid(vnid), logger.Err(err))
			return nil
		}
	}
	if err := sess.Writes.Append(vnid, data); err != nil {
		logger.Warn("write block append failed", logger.Vnid(vnid), logger.Err(err))
	}
	return nil
}

// handleCommit flushes the buffered write block for vnid to disk at
// its declared offset, per §4.7.1 step 3.
func handleCommit(sess *Session, req wire.Request) *wire.Response {
	vnid, err := vnidArg(req.Args[0])
	if err != nil {
		return statusReply(req.XID, shareerr.StatusEINVAL)
	}

	block, err := sess.Writes.Commit(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	path, err := sess.resolvePath(vnid)
	if err != nil {
		return errReply(req.XID, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}
	defer f.Close()

	if _, err := f.WriteAt(block.Bytes(), block.Offset); err != nil {
		return errReply(req.XID, mapOSErr(path, err))
	}

	if sess.Archive != nil {
		if rel, err := sess.Vnodes.RenderPath(vnid); err == nil {
			sess.Archive.Mirror(sess.Share.Name, rel, block.Offset, block.Bytes())
		}
	}

	return statusReply(req.XID, shareerr.StatusOK)
}

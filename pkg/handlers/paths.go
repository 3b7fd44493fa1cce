package handlers

import "path/filepath"

// resolvePath renders vnid's cached path and joins it against the
// mounted share's local filesystem root, producing the path used to
// drive the actual os/syscall calls (§4.6's renderPath, plus the join
// against the share that renderPath alone doesn't know about).
func (s *Session) resolvePath(vnid uint64) (string, error) {
	rel, err := s.Vnodes.RenderPath(vnid)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Share.LocalPath, rel), nil
}

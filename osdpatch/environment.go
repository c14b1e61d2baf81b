package osdpatch

// hostEnvironment prepares the console for the launcher on behalf of the
// patched menu.
type hostEnvironment struct {
	s *Session
}

func (e hostEnvironment) DisableInterrupt(n int) {
	e.s.host.DisableIntc(n)
}

/* The menu's own deinit stops its threads, when it was found */
func (e hostEnvironment) StopThreads() {
	if e.s.deinit != 0 {
		e.s.host.Call(e.s.deinit, 1)
	}
}

func (e hostEnvironment) RestoreVideoMode() {
	e.s.restoreVideoMode()
}

func (e hostEnvironment) ResetIOP() error {
	return e.s.host.ResetIOP()
}

func (e hostEnvironment) FlushCache(mode int) {
	e.s.host.FlushCache(mode)
}

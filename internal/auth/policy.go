package auth

// Policy classifies each API operation as a read or a write and decides
// whether the caller may proceed.
//
// With an identity provider configured, both reads and writes require an
// authenticated session. Without one, reads are always open and writes are
// controlled by the explicit AnonymousWrites flag: the flag replaces the
// implicit (and contradictory) behavior of earlier route variants, one of
// which injected a fixed development identity and one of which left writes
// permanently unreachable.
type Policy struct {
	IdentityConfigured bool
	AnonymousWrites    bool
}

// AllowRead reports whether a read operation may proceed.
func (p Policy) AllowRead(authenticated bool) bool {
	if p.IdentityConfigured {
		return authenticated
	}
	return true
}

// AllowWrite reports whether a write operation may proceed.
func (p Policy) AllowWrite(authenticated bool) bool {
	if p.IdentityConfigured {
		return authenticated
	}
	return p.AnonymousWrites
}

package shareerr

// Standard POSIX-style status integers carried in a response body's status
// field. 0 means success; these are the only codes the wire protocol
// defines (§6) — no new codes are introduced here.
const (
	StatusOK           int32 = 0
	StatusEACCES       int32 = -13
	StatusEEXIST       int32 = -17
	StatusEINVAL       int32 = -22
	StatusENOENT       int32 = -2
	StatusENOMEM       int32 = -12
	StatusENOTDIR      int32 = -20
	StatusEISDIR       int32 = -21
	StatusEOPNOTSUPP   int32 = -95
	StatusEBUSY        int32 = -16
	StatusEHOSTUNREACH int32 = -113
	StatusERANGE       int32 = -34
)

// ToStatus maps err onto the wire's POSIX-style status code. A nil err
// maps to StatusOK. Errors that are not *Error map to StatusEINVAL, since
// any such error indicates an unclassified internal fault rather than a
// condition the protocol itself can describe.
func ToStatus(err error) int32 {
	if err == nil {
		return StatusOK
	}

	se, ok := err.(*Error)
	if !ok {
		return StatusEINVAL
	}

	switch se.Code {
	case NotFound:
		return StatusENOENT
	case AccessDenied, AuthRequired, ReadOnly:
		return StatusEACCES
	case Exists:
		return StatusEEXIST
	case NotEmpty:
		return StatusEBUSY
	case IsDirectory:
		return StatusEISDIR
	case NotDirectory:
		return StatusENOTDIR
	case Invalid, InvalidHandle, NameTooLong:
		return StatusEINVAL
	case IOError:
		return StatusERANGE
	case NoSpace:
		return StatusENOMEM
	case NotSupported:
		return StatusEOPNOTSUPP
	default:
		return StatusEINVAL
	}
}

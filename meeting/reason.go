package meeting

// Reason explains why a join was refused or a session ended. The numeric
// values mirror the server's reject and termination codes.
type Reason int

const (
	ReasonOK         Reason = 200
	ReasonBadRequest Reason = 400
	ReasonForbidden  Reason = 403
	ReasonNotFound   Reason = 404
	ReasonGone       Reason = 410
	ReasonError      Reason = 500
	ReasonUnwanted   Reason = 607
)

// RejectReasonFromCode maps a server reject code to a Reason. Codes outside
// the known set come back as ReasonError, never as a failure.
func RejectReasonFromCode(code int) Reason {
	switch Reason(code) {
	case ReasonBadRequest, ReasonForbidden, ReasonNotFound, ReasonGone, ReasonUnwanted:
		return Reason(code)
	}
	return ReasonError
}

// TerminationReasonFromCode maps a server termination code to a Reason.
// Codes outside the known set come back as ReasonError.
func TerminationReasonFromCode(code int) Reason {
	switch Reason(code) {
	case ReasonOK, ReasonForbidden, ReasonUnwanted:
		return Reason(code)
	}
	return ReasonError
}

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonBadRequest:
		return "bad_request"
	case ReasonForbidden:
		return "forbidden"
	case ReasonNotFound:
		return "not_found"
	case ReasonGone:
		return "gone"
	case ReasonUnwanted:
		return "unwanted"
	case ReasonError:
		return "error"
	}
	return "error"
}

package tcpcore

// String implements fmt.Stringer, returning the RFC 9293 state name.
// Written by hand in the style of a stringer-generated method (see
// go:generate stringer) since the states rarely change.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateListen:
		return "LISTEN"
	case StateSynSent:
		return "SYN-SENT"
	case StateSynRcvd:
		return "SYN-RECEIVED"
	case StateEstablished:
		return "ESTABLISHED"
	case StateFinWait1:
		return "FIN-WAIT-1"
	case StateFinWait2:
		return "FIN-WAIT-2"
	case StateClosing:
		return "CLOSING"
	case StateTimeWait:
		return "TIME-WAIT"
	case StateCloseWait:
		return "CLOSE-WAIT"
	case StateLastAck:
		return "LAST-ACK"
	default:
		return "State(" + itoa(uint8(s)) + ")"
	}
}

// String implements fmt.Stringer for Action.
func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "Accept"
	case ActionDrop:
		return "Drop"
	case ActionSendAck:
		return "SendAck"
	case ActionSendSynAck:
		return "SendSynAck"
	case ActionSendChallengeAck:
		return "SendChallengeAck"
	case ActionSendRst:
		return "SendRst"
	case ActionAbort:
		return "Abort"
	default:
		return "Action(" + itoa(uint8(a)) + ")"
	}
}

func itoa(v uint8) string {
	if v == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

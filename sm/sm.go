package sm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"

	"quietloop.im/xmpp"
	"quietloop.im/xmpp/stream"
	"quietloop.im/xmpp/task"
)

// NS is the namespace used by stream management elements.
const NS = "urn:xmpp:sm:3"

// ErrDisconnected is the error every still-buffered send promise is
// resolved with when the manager is abandoned via Reset.
var ErrDisconnected = errors.New("sm: stream closed without resumption")

// SendResult is the value a Task returned from Send eventually resolves
// to once the corresponding stanza has been acknowledged by the peer (or
// immediately, for sends that are not stream-management eligible).
type SendResult struct {
	// Acked is true if the peer explicitly acknowledged this stanza; it is
	// false if the send completed without stream management ever having
	// been enabled.
	Acked bool
}

type entry struct {
	seq     uint32
	payload []byte
	promise *task.Promise[SendResult]
}

// Manager implements the buffering, sequencing, and resend logic of
// XEP-0198. The zero value is not usable; call NewManager.
type Manager struct {
	mu      sync.Mutex
	enabled bool
	outSeq  uint32
	inSeq   uint32
	buf     []entry

	resumeID string
}

// NewManager allocates a Manager with fresh sequence counters.
func NewManager() *Manager {
	return &Manager{}
}

// Enabled reports whether stream management is currently active on the
// underlying stream.
func (m *Manager) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// ResumeID returns the resumption identifier handed out by the server
// when management was enabled, if any.
func (m *Manager) ResumeID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumeID
}

// Send writes payload to conn. If management is enabled and isStanza is
// true (the payload is a message, presence, or iq), the outgoing counter
// is incremented, the payload is buffered keyed by its new sequence
// number, and an ack request (<r/>) is transmitted; the returned task
// resolves once the peer's ack covers this sequence number. Otherwise the
// task is resolved as soon as the write returns.
func (m *Manager) Send(conn io.Writer, payload []byte, isStanza bool) *task.Task[SendResult] {
	if _, err := conn.Write(payload); err != nil {
		return task.Failed[SendResult](err)
	}

	m.mu.Lock()
	if !m.enabled || !isStanza {
		m.mu.Unlock()
		return task.Resolved(SendResult{})
	}
	m.outSeq++
	p, t := task.New[SendResult]()
	m.buf = append(m.buf, entry{seq: m.outSeq, payload: payload, promise: p})
	m.mu.Unlock()

	if _, err := io.WriteString(conn, "<r xmlns='"+NS+"'/>"); err != nil {
		return task.Failed[SendResult](err)
	}
	return t
}

// HandleAck processes an inbound <a h='peerSeq'/>, resolving and removing
// every buffered entry whose sequence number is less than or equal to
// peerSeq. Entries with a higher sequence number remain buffered.
func (m *Manager) HandleAck(peerSeq uint32) {
	m.mu.Lock()
	var resolved []*task.Promise[SendResult]
	i := 0
	for ; i < len(m.buf); i++ {
		if m.buf[i].seq > peerSeq {
			break
		}
		resolved = append(resolved, m.buf[i].promise)
	}
	m.buf = m.buf[i:]
	m.mu.Unlock()

	for _, p := range resolved {
		p.Finish(SendResult{Acked: true})
	}
}

// RequestAck transmits <a h='incoming-sequence'/> in response to a peer's
// <r/>.
func (m *Manager) RequestAck(conn io.Writer) error {
	m.mu.Lock()
	h := m.inSeq
	m.mu.Unlock()
	_, err := fmt.Fprintf(conn, "<a xmlns='%s' h='%d'/>", NS, h)
	return err
}

// Received must be called once for every inbound message, presence, or iq
// stanza; it advances the incoming counter regardless of whether any
// manager ultimately claims the stanza.
func (m *Manager) Received() {
	m.mu.Lock()
	m.inSeq++
	m.mu.Unlock()
}

// Closed marks the stream as no longer actively managed (the underlying
// connection went away) without discarding the buffer, so that a later
// resumption attempt can still replay it.
func (m *Manager) Closed() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
}

// Reset abandons any chance of resumption: every buffered send is
// resolved with ErrDisconnected and the buffer is cleared.
func (m *Manager) Reset() {
	m.mu.Lock()
	pending := m.buf
	m.buf = nil
	m.enabled = false
	m.outSeq, m.inSeq = 0, 0
	m.mu.Unlock()

	for _, e := range pending {
		e.promise.FinishError(ErrDisconnected)
	}
}

// enable is shared by Feature's Negotiate implementation for both the
// first-time-enable and post-resumption-failure cases: it marks the
// manager enabled and, if resetSequences is true, clears sequence
// counters and re-buffers every still-pending entry under fresh sequence
// numbers (since resumption is no longer meaningful once the stream has
// been torn down and restarted from scratch).
func (m *Manager) enable(resetSequences bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
	if resetSequences {
		m.outSeq, m.inSeq = 0, 0
		for i := range m.buf {
			m.outSeq++
			m.buf[i].seq = m.outSeq
		}
	}
}

// resumeReplay returns the buffered payloads, in order, that must be
// retransmitted on the wire (without renumbering) after a successful
// resumption.
func (m *Manager) resumeReplay() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.buf))
	for i, e := range m.buf {
		out[i] = e.payload
	}
	return out
}

// Feature returns a stream feature that negotiates XEP-0198. If the
// manager has a saved resumption id (populated by a prior successful
// Feature negotiation on this same Manager), it first attempts
// <resume/>; on rejection or absence of a saved id it falls back to a
// plain <enable/> with fresh sequence numbers.
func Feature(m *Manager) xmpp.StreamFeature {
	return xmpp.StreamFeature{
		Name:       xml.Name{Space: NS, Local: "sm"},
		Necessary:  xmpp.Authn,
		Prohibited: xmpp.Ready,
		List: func(ctx context.Context, e *xml.Encoder, start xml.StartElement) (req bool, err error) {
			if err = e.EncodeToken(start); err != nil {
				return false, err
			}
			if err = e.EncodeToken(start.End()); err != nil {
				return false, err
			}
			return false, e.Flush()
		},
		Parse: func(ctx context.Context, d *xml.Decoder, start *xml.StartElement) (bool, interface{}, error) {
			parsed := struct {
				XMLName xml.Name `xml:"urn:xmpp:sm:3 sm"`
			}{}
			return false, nil, d.DecodeElement(&parsed, start)
		},
		Negotiate: func(ctx context.Context, session *xmpp.Session, data interface{}) (mask xmpp.SessionState, rw io.ReadWriter, err error) {
			conn := session.Conn()
			m.mu.Lock()
			resumeID := m.resumeID
			m.mu.Unlock()

			d := xml.NewTokenDecoder(session)

			if resumeID != "" {
				if _, err = fmt.Fprintf(conn, "<resume xmlns='%s' h='%d' previd='%s'/>", NS, m.inSeq, resumeID); err != nil {
					return mask, nil, err
				}
				resumed, peerH, rerr := readEnabledOrFailed(d)
				if rerr != nil {
					return mask, nil, rerr
				}
				if resumed {
					m.enable(false)
					m.HandleAck(peerH)
					h := m.resumeReplay()
					for _, payload := range h {
						if _, err = conn.Write(payload); err != nil {
							return mask, nil, err
						}
					}
					if err = m.RequestAck(conn); err != nil {
						return mask, nil, err
					}
					return xmpp.Ready, nil, nil
				}
				// Resumption failed; fall through to a fresh enable below,
				// discarding the old resume id.
				m.mu.Lock()
				m.resumeID = ""
				m.mu.Unlock()
			}

			if _, err = fmt.Fprintf(conn, "<enable xmlns='%s' resume='true'/>", NS); err != nil {
				return mask, nil, err
			}
			enabled, id, rerr := readEnableResult(d)
			if rerr != nil {
				return mask, nil, rerr
			}
			if !enabled {
				return mask, nil, nil
			}
			m.enable(true)
			m.mu.Lock()
			m.resumeID = id
			m.mu.Unlock()
			return xmpp.Ready, nil, nil
		},
	}
}

func readEnableResult(d *xml.Decoder) (enabled bool, id string, err error) {
	tok, err := d.Token()
	if err != nil {
		return false, "", err
	}
	start, ok := tok.(xml.StartElement)
	if !ok {
		return false, "", stream.BadFormat
	}
	switch start.Name {
	case xml.Name{Space: NS, Local: "enabled"}:
		parsed := struct {
			ID     string `xml:"id,attr"`
			Resume string `xml:"resume,attr"`
		}{}
		if err = d.DecodeElement(&parsed, &start); err != nil {
			return false, "", err
		}
		return true, parsed.ID, nil
	case xml.Name{Space: NS, Local: "failed"}:
		if err = d.Skip(); err != nil {
			return false, "", err
		}
		return false, "", nil
	default:
		return false, "", stream.BadFormat
	}
}

func readEnabledOrFailed(d *xml.Decoder) (ok bool, peerH uint32, err error) {
	tok, err := d.Token()
	if err != nil {
		return false, 0, err
	}
	start, isStart := tok.(xml.StartElement)
	if !isStart {
		return false, 0, stream.BadFormat
	}
	switch start.Name {
	case xml.Name{Space: NS, Local: "resumed"}:
		parsed := struct {
			H uint32 `xml:"h,attr"`
		}{}
		if err = d.DecodeElement(&parsed, &start); err != nil {
			return false, 0, err
		}
		return true, parsed.H, nil
	case xml.Name{Space: NS, Local: "failed"}:
		if err = d.Skip(); err != nil {
			return false, 0, err
		}
		return false, 0, nil
	default:
		return false, 0, stream.BadFormat
	}
}

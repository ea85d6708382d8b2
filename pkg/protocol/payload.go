package protocol

// Hello is the connection setup payload. A non-empty ResumeToken asks the
// server to rehydrate the session's seeded widget values before mounting.
type Hello struct {
	SessionID   string
	ResumeToken string
}

// EncodeHello encodes a Hello payload.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.String(h.SessionID)
	e.String(h.ResumeToken)
	return e.Bytes()
}

// DecodeHello decodes a Hello payload.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	var h Hello
	var err error
	if h.SessionID, err = d.String(); err != nil {
		return nil, err
	}
	if h.ResumeToken, err = d.String(); err != nil {
		return nil, err
	}
	return &h, nil
}

// SetValue is the client's input notification: one rendered instance
// (identified by Handle) produced a new value for the widget identity.
// Value is opaque JSON. Seq orders events within a connection.
// DebounceMs is the widget's declared quiet window in milliseconds;
// zero means no preference.
type SetValue struct {
	Seq        uint64
	DebounceMs uint64
	Handle     string
	ObjectID   string
	Value      []byte
}

// EncodeSetValue encodes a SetValue payload.
func EncodeSetValue(sv *SetValue) []byte {
	e := NewEncoder()
	e.Uvarint(sv.Seq)
	e.Uvarint(sv.DebounceMs)
	e.String(sv.Handle)
	e.String(sv.ObjectID)
	e.Blob(sv.Value)
	return e.Bytes()
}

// DecodeSetValue decodes a SetValue payload.
func DecodeSetValue(data []byte) (*SetValue, error) {
	d := NewDecoder(data)
	var sv SetValue
	var err error
	if sv.Seq, err = d.Uvarint(); err != nil {
		return nil, err
	}
	if sv.DebounceMs, err = d.Uvarint(); err != nil {
		return nil, err
	}
	if sv.Handle, err = d.String(); err != nil {
		return nil, err
	}
	if sv.ObjectID, err = d.String(); err != nil {
		return nil, err
	}
	if sv.Value, err = d.Blob(); err != nil {
		return nil, err
	}
	return &sv, nil
}

// ValueUpdate tells one rendered instance to adopt a new value. It is the
// Update notification on the wire, addressed to the instance's handle so
// the initiator is never echoed.
type ValueUpdate struct {
	Handle   string
	ObjectID string
	Value    []byte
}

// EncodeValueUpdate encodes a ValueUpdate payload.
func EncodeValueUpdate(vu *ValueUpdate) []byte {
	e := NewEncoder()
	e.String(vu.Handle)
	e.String(vu.ObjectID)
	e.Blob(vu.Value)
	return e.Bytes()
}

// DecodeValueUpdate decodes a ValueUpdate payload.
func DecodeValueUpdate(data []byte) (*ValueUpdate, error) {
	d := NewDecoder(data)
	var vu ValueUpdate
	var err error
	if vu.Handle, err = d.String(); err != nil {
		return nil, err
	}
	if vu.ObjectID, err = d.String(); err != nil {
		return nil, err
	}
	if vu.Value, err = d.Blob(); err != nil {
		return nil, err
	}
	return &vu, nil
}

// ReadyValue is one fresh widget value bound for the kernel.
type ReadyValue struct {
	ObjectID string
	Value    []byte
}

// ReadyBatch carries the coalesced fresh values of one flush window.
type ReadyBatch struct {
	Values []ReadyValue
}

// EncodeReadyBatch encodes a ReadyBatch payload.
func EncodeReadyBatch(rb *ReadyBatch) []byte {
	e := NewEncoder()
	e.Uvarint(uint64(len(rb.Values)))
	for _, rv := range rb.Values {
		e.String(rv.ObjectID)
		e.Blob(rv.Value)
	}
	return e.Bytes()
}

// DecodeReadyBatch decodes a ReadyBatch payload.
func DecodeReadyBatch(data []byte) (*ReadyBatch, error) {
	d := NewDecoder(data)
	n, err := d.Count()
	if err != nil {
		return nil, err
	}
	rb := &ReadyBatch{Values: make([]ReadyValue, 0, n)}
	for i := 0; i < n; i++ {
		var rv ReadyValue
		if rv.ObjectID, err = d.String(); err != nil {
			return nil, err
		}
		if rv.Value, err = d.Blob(); err != nil {
			return nil, err
		}
		rb.Values = append(rb.Values, rv)
	}
	return rb, nil
}

// KernelMessage is an out-of-band push from the kernel to every rendered
// instance of a widget: progress updates, partial results, and the like.
// Message is opaque JSON; Buffers carry raw binary sidecars.
type KernelMessage struct {
	ObjectID string
	Message  []byte
	Buffers  [][]byte
}

// EncodeKernelMessage encodes a KernelMessage payload.
func EncodeKernelMessage(km *KernelMessage) []byte {
	e := NewEncoder()
	e.String(km.ObjectID)
	e.Blob(km.Message)
	e.Uvarint(uint64(len(km.Buffers)))
	for _, b := range km.Buffers {
		e.Blob(b)
	}
	return e.Bytes()
}

// DecodeKernelMessage decodes a KernelMessage payload.
func DecodeKernelMessage(data []byte) (*KernelMessage, error) {
	d := NewDecoder(data)
	var km KernelMessage
	var err error
	if km.ObjectID, err = d.String(); err != nil {
		return nil, err
	}
	if km.Message, err = d.Blob(); err != nil {
		return nil, err
	}
	n, err := d.Count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		b, err := d.Blob()
		if err != nil {
			return nil, err
		}
		km.Buffers = append(km.Buffers, b)
	}
	return &km, nil
}

// Purge signals that an owning cell was deleted or is about to re-execute
// from scratch, so every widget identity it owns must be removed.
type Purge struct {
	OwnerID string
}

// EncodePurge encodes a Purge payload.
func EncodePurge(p *Purge) []byte {
	e := NewEncoder()
	e.String(p.OwnerID)
	return e.Bytes()
}

// DecodePurge decodes a Purge payload.
func DecodePurge(data []byte) (*Purge, error) {
	d := NewDecoder(data)
	owner, err := d.String()
	if err != nil {
		return nil, err
	}
	return &Purge{OwnerID: owner}, nil
}

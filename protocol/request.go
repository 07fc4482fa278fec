package protocol

// Pair is one field/value element of a multiplicity-2 range, the shape
// HSET and ZADD take.
type Pair struct {
	Field string
	Value string
}

// Request is a pipeline of commands framed for a single write. The
// payload grows through the Push helpers; handing the request to a
// connection freezes it until its completion is observed, after which it
// may be cleared and reused.
//
// Commands whose responses are server pushes (the subscribe family) add
// no tag: the invariant is that the tag queue length equals the number of
// responses the server will send back in-band.
type Request struct {
	payload []byte
	tags    []Command
}

// NewRequest returns an empty request.
func NewRequest() *Request {
	return &Request{}
}

// Push appends one command frame with the given arguments.
func (r *Request) Push(cmd Command, args ...interface{}) error {
	payload := AppendHeader(r.payload, 1+len(args))
	payload = AppendBulkString(payload, string(cmd))

	var err error
	for _, arg := range args {
		if payload, err = appendArg(payload, arg); err != nil {
			return err
		}
	}

	r.payload = payload
	r.pushTag(cmd)
	return nil
}

// PushRange appends one command frame of the shape `cmd key e1 e2 ...`,
// each element contributing a single bulk. Pushing an empty range is a
// no-op.
func (r *Request) PushRange(cmd Command, key string, elems []string) error {
	if len(elems) == 0 {
		return nil
	}

	payload := AppendHeader(r.payload, 2+len(elems))
	payload = AppendBulkString(payload, string(cmd))
	payload = AppendBulkString(payload, key)
	for _, e := range elems {
		payload = AppendBulkString(payload, e)
	}

	r.payload = payload
	r.pushTag(cmd)
	return nil
}

// PushPairs appends one command frame of the shape
// `cmd key f1 v1 f2 v2 ...`, each pair contributing two bulks in the
// caller-given order. Pushing an empty range is a no-op.
func (r *Request) PushPairs(cmd Command, key string, pairs []Pair) error {
	if len(pairs) == 0 {
		return nil
	}

	payload := AppendHeader(r.payload, 2+2*len(pairs))
	payload = AppendBulkString(payload, string(cmd))
	payload = AppendBulkString(payload, key)
	for _, p := range pairs {
		payload = AppendBulkString(payload, p.Field)
		payload = AppendBulkString(payload, p.Value)
	}

	r.payload = payload
	r.pushTag(cmd)
	return nil
}

func (r *Request) pushTag(cmd Command) {
	if !cmd.HasPushResponse() {
		r.tags = append(r.tags, cmd)
	}
}

// Payload returns the framed bytes of the pipeline.
func (r *Request) Payload() []byte {
	return r.payload
}

// Tags returns the commands awaiting in-band responses, in wire order.
func (r *Request) Tags() []Command {
	return r.tags
}

// Size returns the number of commands awaiting in-band responses.
func (r *Request) Size() int {
	return len(r.tags)
}

// Empty reports whether nothing has been pushed.
func (r *Request) Empty() bool {
	return len(r.payload) == 0
}

// Clear resets the request for reuse, keeping the allocated buffers.
func (r *Request) Clear() {
	r.payload = r.payload[:0]
	r.tags = r.tags[:0]
}

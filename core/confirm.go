package core

import "pkt.systems/periscope/schema"

// Confirmations correlates tool confirmation requests and responses by
// call id. Per call id the state machine is Requested -> {Answered |
// Withdrawn}; both outcomes are terminal and consume the request exactly
// once. Not safe for concurrent use; the owning hub serializes access.
type Confirmations struct {
	pending map[schema.CallID]schema.ConfirmationRequest
	order   []schema.CallID
	settled map[schema.CallID]struct{}
}

// NewConfirmations constructs an empty confirmation set.
func NewConfirmations() *Confirmations {
	return &Confirmations{
		pending: make(map[schema.CallID]schema.ConfirmationRequest),
		settled: make(map[schema.CallID]struct{}),
	}
}

// Request adds a confirmation to the pending set. A request for a call id
// that is already pending or settled is ignored.
func (c *Confirmations) Request(req schema.ConfirmationRequest) bool {
	if _, ok := c.pending[req.CallID]; ok {
		return false
	}
	if _, ok := c.settled[req.CallID]; ok {
		return false
	}
	c.pending[req.CallID] = req
	c.order = append(c.order, req.CallID)
	return true
}

// Answer consumes the pending request for the call id. The first answer
// returns the request; a call id that was already answered or withdrawn
// returns schema.ErrConfirmationAnswered, and one never requested
// returns schema.ErrUnknownCall.
func (c *Confirmations) Answer(callID schema.CallID) (schema.ConfirmationRequest, error) {
	req, ok := c.pending[callID]
	if !ok {
		if _, settled := c.settled[callID]; settled {
			return schema.ConfirmationRequest{}, schema.ErrConfirmationAnswered
		}
		return schema.ConfirmationRequest{}, schema.ErrUnknownCall
	}
	c.remove(callID)
	return req, nil
}

// Withdraw removes a pending request without an answer, used when the
// session engine cancels the underlying tool call. Returns false for
// unknown or already settled call ids.
func (c *Confirmations) Withdraw(callID schema.CallID) bool {
	if _, ok := c.pending[callID]; !ok {
		return false
	}
	c.remove(callID)
	return true
}

// Pending returns the open requests in arrival order.
func (c *Confirmations) Pending() []schema.ConfirmationRequest {
	out := make([]schema.ConfirmationRequest, 0, len(c.pending))
	for _, callID := range c.order {
		if req, ok := c.pending[callID]; ok {
			out = append(out, req)
		}
	}
	return out
}

func (c *Confirmations) remove(callID schema.CallID) {
	delete(c.pending, callID)
	c.settled[callID] = struct{}{}
	for i, id := range c.order {
		if id == callID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

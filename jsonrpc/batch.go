package jsonrpc

import "context"

// StartBatch switches the client into batch mode. Calls made until
// ExecuteBatch are queued instead of sent. Calling StartBatch again discards
// anything queued so far.
func (c *Client) StartBatch() {
	if c.state == stateBatching && len(c.queue) > 0 {
		c.log.Debug().Int("discarded", len(c.queue)).Msg("Restarting batch, discarding queued calls")
	}
	c.state = stateBatching
	c.queue = nil
}

// Batching reports whether calls are currently being queued.
func (c *Client) Batching() bool {
	return c.state == stateBatching
}

// ExecuteBatch leaves batch mode and sends every queued envelope in a single
// HTTP request. Responses are returned in the order of the reply array. An
// empty batch returns an empty slice without any request.
func (c *Client) ExecuteBatch(ctx context.Context) ([]*Response, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	c.state = stateIdle
	queue := c.queue
	c.queue = nil

	if len(queue) == 0 {
		return []*Response{}, nil
	}

	items, err := c.send(ctx, queue)
	if err != nil {
		return nil, err
	}
	responses := make([]*Response, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewResponse(item))
	}
	return responses, nil
}

// Package convert derives Markdown objects from stored HTML objects.
//
// A Pipeline consumes object-created events, fetches each source object,
// renders it and writes the sibling object under the target extension.
// Events are independent: a failure is reported for its own event and never
// stops the rest of the batch. Retrying is left to whatever delivered the
// events.
//
//	p, err := convert.New(store, markdown.NewConverter(), convert.Config{
//	    Rewrite: rewrite.Default(),
//	})
//	if err != nil {
//	    return err
//	}
//	res := p.Handle(ctx, convert.FromS3Event(ev))
//	if err := res.Err(); err != nil {
//	    return err
//	}
//
// Dispatcher queues events from an origin that has no notification service
// of its own, filtering them by source extension first.
package convert

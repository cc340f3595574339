// Package eventbus provides a typed, synchronous publish/subscribe topic.
//
// A Topic[T] delivers each published value to every handler subscribed at
// the moment Publish is called, in subscription order, on the publishing
// goroutine. There is no buffering and no background delivery: when Publish
// returns, every handler has run.
//
// A handler that panics is recovered and reported through the optional
// PanicHandler; the remaining handlers still receive the value.
//
// Usage:
//
//	shots := eventbus.NewTopic[Shot]("shot-received")
//	unsubscribe := shots.Subscribe(func(s Shot) { fmt.Println(s.Speed) })
//	defer unsubscribe()
//	shots.Publish(Shot{Speed: 61.2})
package eventbus

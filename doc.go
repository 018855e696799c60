/*
Package itinera is a streaming trip-planner conversation client.

It asks a fixed series of travel questions, validates every answer against the planner
server, then requests an itinerary whose text streams back in fragments over a persistent
websocket. Around that core it keeps the connection alive with capped exponential backoff,
shows a typing indicator driven by the stream, enforces request deadlines, and persists the
conversation draft so an interrupted session can be resumed.

# Architecture

Every state change happens on a single event loop. Transport events, user actions, timers
and request completions are posted to it as closures, so the conversation state needs no
locks. The engine never draws anything itself: it emits domain.Intent values that a
ports.View renders (the itinera binary uses a terminal view).

# Usage

	client, err := itinera.New("http://localhost:5000",
		itinera.WithView(ports.ViewFunc(func(in domain.Intent) {
			log.Printf("%s: %v", in.Type, in.Payload)
		})),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go func() {
		runner := &itinera.Runner{Input: os.Stdin, Output: os.Stdout}
		_ = runner.Run(ctx, client)
		cancel()
	}()

	if err := client.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package itinera

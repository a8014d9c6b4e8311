// Package scheduler admits delivery requests and runs them on background
// workers. Single submissions run concurrently; a batch runs its episodes
// strictly in order on one worker. Resubmitting a conversation+episode
// pair cancels the run already in flight.
package scheduler

// Package events defines the typed events emitted by the orchestrator.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - timeline.*
//   - turn_state.*
//   - passive_listening.*
//   - assistant_speech.*
//
// timeline events
//
//   - TurnAppended (timeline.turn_appended): a turn was recorded. Turns are
//     emitted in sequence order.
//
// turn_state events
//
//   - TurnBusyChanged (turn_state.busy_changed): the single in-flight turn
//     slot was taken or released.
//
// passive_listening events
//
//   - PassiveListeningChanged (passive_listening.state_changed): mode or retry
//     count of the passive supervisor changed.
//
// assistant_speech events
//
//   - SpeechDispatchFailed (assistant_speech.dispatch_failed): the synthesis
//     service rejected or never received a request. Diagnostic only.
package events

// Package events defines the typed orchestration event contract.
//
// Event kinds are grouped by producer-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - tool_call.*
//   - assistant_speech.*
//   - turn_state.*
//   - session.*
//   - audio_device.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Segment: append-only text piece emitted in stream order.
//   - Delta: append-only fragment of a larger streamed payload.
//   - Final: terminal immutable text/state for the current stream/turn phase.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserSpeechEnded (user_input.speech_ended): speech activity ended.
//   - UserTranscriptInterim (user_input.transcript_interim): mutable interim
//     transcript snapshot.
//   - UserTranscriptFinal (user_input.transcript_final): terminal full
//     transcript for the utterance; triggers the next turn.
//
// assistant_response events
//
//   - AssistantResponseSegment (assistant_response.segment): streamed
//     response text segment.
//   - AssistantResponseFinal (assistant_response.final): response text
//     stream is complete.
//
// tool_call events
//
//   - ToolCallDelta (tool_call.delta): streamed argument fragment for one
//     call id, with a monotonically increasing sequence number.
//   - ToolCallArgumentsDone (tool_call.arguments_done): the upstream signal
//     that a call's argument stream is complete. Only this event, never a
//     successful parse on its own, promotes an accumulated call.
//   - ToolCallStarted (tool_call.started): tool execution started.
//   - ToolCallCompleted (tool_call.completed): tool execution completed.
//   - ToolCallFailed (tool_call.failed): tool execution failed.
//
// assistant_speech events
//
//   - AssistantSpeechStarted (assistant_speech.started): the first
//     model-originated audio frame was written to the render channel for the
//     current turn. This is the speak-before-act gate trigger.
//   - AssistantAudioDelta (assistant_speech.frame): synthesized speech audio
//     frame, routed to the audio bridge.
//   - AssistantSpeechFinal (assistant_speech.final): speech synthesis ended.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): current turn started.
//   - TurnCompleted (turn_state.completed): the model signalled turn
//     completion.
//   - TurnFailed (turn_state.failed): current turn failed.
//   - TurnCancelled (turn_state.cancelled): current turn was cancelled.
//
// session events
//
//   - SessionExpiring (session.expiring): the duplex session is nearing its
//     lifetime bound and a replacement is being opened.
//   - SessionRotated (session.rotated): hand-off to the replacement session
//     finished.
//   - SessionError (session.error): transport failure; Fatal is set once
//     reconnect retries are exhausted.
//
// audio_device events
//
//   - DeviceError (audio_device.error): capture/render device failure
//     reported from outside the real-time callback.
package events

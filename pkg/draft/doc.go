/*
Package draft persists in-progress form input so it survives reloads.

A Store keeps two keys per form in a ports.KVStore:

	<namespace>:<formID>_draft   JSON object of field values
	<namespace>:<formID>_step    current step, 1-based

Both keys are always written in one batch and deleted in one batch. Write
failures (quota exceeded, storage unavailable) are logged and swallowed: the
caller keeps working with its in-memory values and only persistence is lost.
Unreadable drafts load as empty drafts.
*/
package draft

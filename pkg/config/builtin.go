package config

// DefaultReviewerPrompt is the built-in reviewer instruction template,
// used when mdt_config.reviewer_prompt_path is not configured. The
// {round_count} token receives the current round number.
const DefaultReviewerPrompt = `This is review round {round_count} of the multidisciplinary discussion.

You have now read the diagnostic reports written by the other expert groups.
Compare them against your own report and decide whether the joint picture is
complete and consistent, or whether your group needs to re-investigate.

Respond with a single JSON object and nothing else:
{"is_satisfied": <true|false>, "reinvestigate_reason": "<empty when satisfied; otherwise a concrete, targeted reason>"}`

// DefaultSummaryStyle is the clinical-report skeleton used when the caller
// supplies no summary_style directive.
const DefaultSummaryStyle = `Structure the final report as:
1. Case overview
2. Key findings per specialty
3. Differential diagnosis, ranked, with supporting evidence cited as <ref>group_id.index</ref>
4. Recommended next steps`

// DefaultPreDiagnosisInstruction asks the triage LLM for a dialogue brief.
const DefaultPreDiagnosisInstruction = "Summarize the preceding patient-clinician dialogue as a structured case brief, under 500 characters."

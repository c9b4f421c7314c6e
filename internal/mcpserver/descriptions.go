package mcpserver

// Tool descriptions with interpretation guidance for LLMs.

func describeRepositoryHealth() string {
	return `Scores the health of hosted repositories from their remote API, without cloning them locally.

USE WHEN:
- Getting a quick quality overview of an unfamiliar repository
- Comparing several repositories side by side
- Deciding what to improve first in a project you maintain

INTERPRETING RESULTS:
- Nine metrics, each 0-100 where higher is better: codeComplexity,
  codeDuplication, codeStyleConsistency, testCoverage, openIssuesAndPRs,
  dependencyManagement, documentationQuality, commitFrequency,
  branchingStrategy
- qualityScore is the rounded mean of the nine metrics
- Metrics below 70 produce a suggestion, weakest first
- empty: true means the repository has no content; every metric is 0
- diagnostics.degradations lists anything that could not be read (rate
  limits, unavailable issues). Affected metrics fall back to defaults
- evidence names the concrete issue, pull request, function, duplicated
  block and files the suggestions refer to

ERRORS:
- not_found: repository does not exist or the token cannot see it
- unauthorized: token rejected
- no_branch: none of the default, main, master or develop branches exist
- rate_limited: API quota exhausted before metadata could be read`
}

package analysis

// feedbackSystemPrompt is the system prompt for architect feedback
// generation.
const feedbackSystemPrompt = `You are a software architecture expert specializing in requirements analysis and design validation. You review coverage analyses comparing requirement statements against design statements and produce actionable feedback.`

// feedbackUserPrompt is the user prompt template for feedback generation.
// Placeholders, in order: summary block, requirements JSON, design JSON,
// per-requirement results JSON.
const feedbackUserPrompt = `Analyze the alignment between these requirements and design documents.

SUMMARY:
%s

REQUIREMENTS:
%s

DESIGN ELEMENTS:
%s

COVERAGE ANALYSIS RESULTS:
%s

Based on the coverage analysis above, provide:

1. **Executive Summary**: Brief overview of the alignment quality
2. **Detailed Gap Analysis**: Requirements that are missing or only partially addressed in the design
3. **Design Coverage**: Which design elements effectively address which requirements
4. **Priority Recommendations**:
   - High priority: Missing requirements (no related design at all)
   - Medium priority: Partial coverage (related design below the confidence threshold)
   - Low priority: Minor gaps or improvements
5. **Actionable Next Steps**: Specific design changes to close the gaps

Format your response with markdown headings and keep every recommendation tied to a specific requirement.`

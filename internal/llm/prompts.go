package llm

const systemPrompt = "You are an expert at identifying potential customers from community conversations."

const extractionPromptHeader = `Analyze the following chat messages to identify potential customers for a product.

Group your analysis PER PARTICIPANT (by author_id). Return a JSON object with a 'participants' key containing an array of objects, one for each participant who shows customer intent. Each object MUST have:
- participant_id (string): the author_id exactly as provided
- participant_name (string): the author name exactly as provided
- intent_score (0-1): How likely is this person to be a potential customer?
  - 0.0-0.3: No buying signal, casual chatter
  - 0.4-0.6: Mild curiosity or indirect interest
  - 0.7-0.9: Clear pain point or active search for a solution
  - 1.0: Explicit purchase intent or urgent unsolved problem
- pain_points (array of strings): concrete problems they describe
- interests (array of strings): what they are looking for
- message_count (integer >= 1): how many of their messages carry customer signal

Pay special attention to messages containing these signals:
`

const extractionPromptFooter = `
Only include participants with intent_score above 0.3. If nobody qualifies, return {"participants": []}.

Messages (JSON):
`

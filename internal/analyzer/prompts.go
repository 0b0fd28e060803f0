// ABOUTME: Prompt templates for the three analysis flavors
// ABOUTME: General Q&A system prompt plus traffic and incident prompt builders

package analyzer

import (
	"fmt"
	"strings"
)

// systemPrompt frames every inference call. It is never persisted to the
// conversation store.
const systemPrompt = `You are SecureBot, an expert AI security analyst specializing in DDoS attack analysis and network security.

Your expertise includes:
- DDoS attack pattern recognition (SYN floods, HTTP floods, Slowloris, UDP floods)
- Network traffic analysis and anomaly detection
- Security incident response and mitigation strategies
- Threat intelligence and risk assessment

Guidelines:
- Provide clear, actionable security recommendations
- Explain technical concepts in an accessible way
- Reference specific attack signatures and patterns when relevant
- Suggest concrete mitigation steps
- Be concise but thorough

If asked about attack patterns, explain:
- What the attack does
- How to detect it
- Recommended mitigation strategies
- Risk level assessment`

// TrafficPattern is the structured input for traffic classification.
type TrafficPattern struct {
	TotalRequests int64            `json:"total_requests"`
	UniqueIPs     int64            `json:"unique_ips"`
	RequestsPerIP float64          `json:"requests_per_ip"`
	IPEntropy     float64          `json:"ip_entropy"`
	Protocols     map[string]int64 `json:"protocols"`
	TopIPs        []string         `json:"top_ips"`
}

// Incident is one entry in an incident report request.
type Incident struct {
	Type       string  `json:"type"`
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

// buildTrafficPrompt renders a traffic pattern into the classification prompt.
func buildTrafficPrompt(pattern *TrafficPattern) string {
	topIPs := "N/A"
	if len(pattern.TopIPs) > 0 {
		topIPs = strings.Join(pattern.TopIPs, ", ")
	}

	protocols := make([]string, 0, len(pattern.Protocols))
	for proto, count := range pattern.Protocols {
		protocols = append(protocols, fmt.Sprintf("%s=%d", proto, count))
	}

	return fmt.Sprintf(`Analyze this network traffic pattern and determine if it's malicious:

Traffic Data:
- Total Requests: %d
- Unique IPs: %d
- Requests per IP: %.2f
- IP Entropy: %.2f
- Protocol Distribution: %s
- Top Source IPs: %s

Provide:
1. Attack classification (if malicious)
2. Confidence level
3. Reasoning
4. Recommended actions`,
		pattern.TotalRequests,
		pattern.UniqueIPs,
		pattern.RequestsPerIP,
		pattern.IPEntropy,
		strings.Join(protocols, ", "),
		topIPs,
	)
}

// buildIncidentPrompt renders an incident list into the report prompt.
func buildIncidentPrompt(incidents []*Incident) string {
	lines := make([]string, len(incidents))
	for i, inc := range incidents {
		lines[i] = fmt.Sprintf("- %s attack at %s (Confidence: %.2f)", inc.Type, inc.Timestamp, inc.Confidence)
	}

	return fmt.Sprintf(`Generate a concise security incident report for these attacks:

%s

Include:
1. Executive Summary
2. Attack Timeline
3. Impact Assessment
4. Mitigation Actions Taken
5. Recommendations

Keep it professional and actionable.`,
		strings.Join(lines, "\n"),
	)
}

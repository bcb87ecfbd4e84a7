package compliance

import "github.com/pratik-mahalle/ratewatch/internal/domain/platform"

// Regulations returns every regulation in the catalog, in report order
func Regulations() []Regulation {
	return []Regulation{
		RegulationGDPR,
		RegulationCCPA,
		RegulationCOPPA,
		RegulationCANSPAM,
		RegulationFTC,
		RegulationDSA,
	}
}

// Requirements returns the fixed requirement list for a regulation
func Requirements(reg Regulation) []Requirement {
	switch reg {
	case RegulationGDPR:
		return []Requirement{
			{Regulation: reg, Requirement: "Lawful basis recorded for processing personal data received from the platform", Recommendation: "Document consent or legitimate interest for every imported profile field"},
			{Regulation: reg, Requirement: "Data subject access and erasure requests honoured within 30 days", Recommendation: "Wire platform deletion callbacks into the erasure workflow"},
			{Regulation: reg, Requirement: "Personal data retained no longer than necessary", Recommendation: "Expire cached platform profiles after the retention window"},
			{Regulation: reg, Requirement: "Cross-border transfers covered by standard contractual clauses", Recommendation: "Review processor agreements for each platform region"},
		}
	case RegulationCCPA:
		return []Requirement{
			{Regulation: reg, Requirement: "Do-not-sell opt-out honoured for California residents", Recommendation: "Propagate opt-out flags to all platform audience syncs"},
			{Regulation: reg, Requirement: "Categories of collected personal information disclosed", Recommendation: "Keep the privacy notice in sync with platform scopes"},
			{Regulation: reg, Requirement: "Consumer deletion requests forwarded to service providers", Recommendation: "Forward deletions to platform custom audiences"},
		}
	case RegulationCOPPA:
		return []Requirement{
			{Regulation: reg, Requirement: "No personal data collected from users under 13 without verifiable parental consent", Recommendation: "Filter under-13 accounts before ingesting platform data"},
			{Regulation: reg, Requirement: "Child-directed content flagged as made-for-kids", Recommendation: "Set made-for-kids flags on every child-directed upload"},
		}
	case RegulationCANSPAM:
		return []Requirement{
			{Regulation: reg, Requirement: "Commercial messages carry an accurate sender identity", Recommendation: "Use the verified business identity on outbound messages"},
			{Regulation: reg, Requirement: "Every commercial message offers a working opt-out", Recommendation: "Include an unsubscribe keyword in message templates"},
			{Regulation: reg, Requirement: "Opt-out requests processed within 10 business days", Recommendation: "Process opt-outs synchronously on receipt"},
		}
	case RegulationFTC:
		return []Requirement{
			{Regulation: reg, Requirement: "Paid endorsements and sponsored posts clearly disclosed", Recommendation: "Apply the platform branded-content tag to sponsored posts"},
			{Regulation: reg, Requirement: "No fake reviews or purchased engagement", Recommendation: "Audit engagement sources for purchased followers"},
		}
	case RegulationDSA:
		return []Requirement{
			{Regulation: reg, Requirement: "Advertising shown with sponsor identity and targeting parameters", Recommendation: "Store targeting parameters with every promoted post"},
			{Regulation: reg, Requirement: "Notice-and-action requests on hosted content handled promptly", Recommendation: "Route takedown notices to the moderation queue"},
		}
	default:
		return nil
	}
}

// PolicyRules returns the fixed policy list for a platform
func PolicyRules(p platform.Platform) []PolicyRule {
	switch p {
	case platform.Facebook:
		return []PolicyRule{
			{ID: "fb-platform-terms", Platform: p, Description: "Platform Terms accepted and current", Enforcement: EnforcementBlocking},
			{ID: "fb-data-use-checkup", Platform: p, Description: "Annual data use checkup completed", Enforcement: EnforcementBlocking},
			{ID: "fb-app-review", Platform: p, Description: "Requested permissions approved in app review", Enforcement: EnforcementBlocking},
			{ID: "fb-automated-posting", Platform: p, Description: "Automated posting stays within page publishing limits", Enforcement: EnforcementAdvisory},
		}
	case platform.Instagram:
		return []PolicyRule{
			{ID: "ig-content-publishing-limit", Platform: p, Description: "No more than 25 API-published posts per 24 hours", Enforcement: EnforcementBlocking},
			{ID: "ig-business-account", Platform: p, Description: "Connected account is a business or creator account", Enforcement: EnforcementBlocking},
			{ID: "ig-hashtag-limit", Platform: p, Description: "Hashtag search stays under 30 unique hashtags per week", Enforcement: EnforcementAdvisory},
		}
	case platform.Twitter:
		return []PolicyRule{
			{ID: "tw-automation-rules", Platform: p, Description: "Automated accounts labelled and no bulk follow or unfollow", Enforcement: EnforcementBlocking},
			{ID: "tw-duplicate-content", Platform: p, Description: "No duplicate or substantially similar posts across accounts", Enforcement: EnforcementBlocking},
			{ID: "tw-developer-agreement", Platform: p, Description: "Use case matches the registered developer agreement", Enforcement: EnforcementAdvisory},
		}
	case platform.WhatsApp:
		return []PolicyRule{
			{ID: "wa-opt-in", Platform: p, Description: "Recipients opted in before business-initiated messages", Enforcement: EnforcementBlocking},
			{ID: "wa-template-approval", Platform: p, Description: "Business-initiated messages use approved templates", Enforcement: EnforcementBlocking},
			{ID: "wa-quality-rating", Platform: p, Description: "Phone number quality rating is not low", Enforcement: EnforcementAdvisory},
		}
	case platform.LinkedIn:
		return []PolicyRule{
			{ID: "li-api-terms", Platform: p, Description: "API terms of use accepted for the application", Enforcement: EnforcementBlocking},
			{ID: "li-no-scraping", Platform: p, Description: "Member data only accessed through approved APIs", Enforcement: EnforcementBlocking},
		}
	case platform.TikTok:
		return []PolicyRule{
			{ID: "tt-content-posting", Platform: p, Description: "Content posting API audited for public visibility", Enforcement: EnforcementBlocking},
			{ID: "tt-commercial-disclosure", Platform: p, Description: "Commercial content toggle set on branded posts", Enforcement: EnforcementAdvisory},
		}
	case platform.YouTube:
		return []PolicyRule{
			{ID: "yt-api-services-terms", Platform: p, Description: "API Services Terms and developer policies accepted", Enforcement: EnforcementBlocking},
			{ID: "yt-quota-audit", Platform: p, Description: "Quota extension audit passed for current usage", Enforcement: EnforcementAdvisory},
		}
	default:
		return nil
	}
}

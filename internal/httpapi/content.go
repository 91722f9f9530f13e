package httpapi

type card struct {
	Title       string
	Description string
	Features    []string
}

type faqEntry struct {
	Question string
	Answer   string
}

type contactChannel struct {
	Label string
	Value string
	Hours string
}

type marketingContent struct {
	Features []card
	Steps    []card
	Services []card
	Process  []card
	Values   []card
	FAQ      []faqEntry
	Contacts []contactChannel
}

var siteContent = marketingContent{
	Features: []card{
		{Title: "Fast Processing", Description: "Get your claims processed in 24-48 hours with our streamlined workflow."},
		{Title: "Secure & Reliable", Description: "Bank-grade security with 99.9% uptime ensures your data is always safe."},
		{Title: "Expert Support", Description: "Our certified claims specialists guide you through every step."},
		{Title: "Document Management", Description: "Easy upload and tracking of all required documents in one place."},
	},
	Steps: []card{
		{Title: "Submit Your Claim", Description: "Upload your documents through our secure portal or mobile app."},
		{Title: "Expert Review", Description: "Our specialists review and verify all documentation for accuracy."},
		{Title: "Fast Processing", Description: "Claims are processed and approved within 24-48 hours."},
		{Title: "Instant Settlement", Description: "Receive direct payment to your bank account upon approval."},
	},
	Services: []card{
		{Title: "Health Insurance Claims", Description: "Medical expenses, hospitalization, surgery, and treatment claims processed quickly.",
			Features: []string{"Cashless claims", "Reimbursement", "Pre-authorization", "Emergency coverage"}},
		{Title: "Motor Insurance Claims", Description: "Vehicle damage, accidents, theft, and comprehensive motor insurance claims.",
			Features: []string{"Accident claims", "Theft coverage", "Third-party liability", "Own damage"}},
		{Title: "Property Insurance Claims", Description: "Home, office, and property damage claims due to natural disasters or accidents.",
			Features: []string{"Fire damage", "Flood coverage", "Earthquake", "Burglary"}},
		{Title: "Business Insurance Claims", Description: "Commercial property, liability, and business interruption insurance claims.",
			Features: []string{"Commercial property", "Liability coverage", "Business interruption", "Equipment"}},
	},
	Process: []card{
		{Title: "Document Collection", Description: "We help you gather and organize all required documents for your claim."},
		{Title: "Claim Verification", Description: "Our experts verify and validate your claim details with insurance providers."},
		{Title: "Fast Settlement", Description: "We follow up with the insurer until the settlement reaches your account."},
	},
	Values: []card{
		{Title: "Trust & Security", Description: "We maintain the highest standards of data security and customer privacy."},
		{Title: "Customer First", Description: "Every decision we make is centered around improving customer experience."},
		{Title: "Excellence", Description: "We strive for excellence in every claim we process and service we provide."},
		{Title: "Innovation", Description: "Continuously improving our platform with latest technology and best practices."},
	},
	FAQ: []faqEntry{
		{Question: "How long does it take to process my insurance claim?",
			Answer: "Most claims are processed within 24-48 hours. Complex claims may take up to 5-7 business days. We provide regular updates throughout the process and keep you informed of any delays."},
		{Question: "What documents do I need to submit a claim?",
			Answer: "Required documents vary by claim type but typically include: policy documents, claim form, bills/invoices, medical reports (for health claims), FIR copy (for theft/accident), and identity proof. Our team will provide you with a complete checklist."},
		{Question: "Is there a fee for using EasyClaims services?",
			Answer: "We offer a free initial consultation. Our service fees are transparent and competitive, typically ranging from 5-10% of the claim amount, only charged upon successful settlement. No upfront fees required."},
		{Question: "Can you help with rejected claims?",
			Answer: "Yes, we specialize in appealing rejected claims. Our experts review the rejection reasons, gather additional evidence if needed, and represent you during the appeal process with the insurance company."},
		{Question: "Which insurance companies do you work with?",
			Answer: "We work with 25+ major insurance providers including HDFC ERGO, ICICI Lombard, Bajaj Allianz, LIC, SBI General, and many more. If you don't see your insurer listed, contact us - we likely work with them too."},
		{Question: "How do I track my claim status?",
			Answer: "You can track your claim 24/7 through our online portal or mobile app. You'll receive SMS and email updates at each stage of processing. Our support team is also available for real-time updates."},
		{Question: "What if my claim is very old or complex?",
			Answer: "We handle claims of all types and ages. Our experienced team has successfully processed complex claims including those that were previously rejected or delayed. Contact us for a free assessment."},
		{Question: "Can I submit a claim on behalf of someone else?",
			Answer: "Yes, you can submit claims for immediate family members or with proper authorization. You'll need to provide relationship proof and a signed authorization letter from the policyholder."},
		{Question: "Do you provide support in regional languages?",
			Answer: "Yes, our support team can assist you in Hindi, English, and several regional languages including Tamil, Telugu, Bengali, Marathi, and Gujarati."},
		{Question: "What happens if my claim is denied?",
			Answer: "If your claim is denied, we provide a detailed explanation of the reasons and explore appeal options. We can help you gather additional documentation or evidence needed to challenge the decision."},
	},
	Contacts: []contactChannel{
		{Label: "Phone", Value: "+91 1800-123-4567", Hours: "Mon-Sat, 9AM-7PM"},
		{Label: "WhatsApp", Value: "+91 98765-43210", Hours: "24/7 Available"},
		{Label: "Email", Value: "support@easyclaims.in", Hours: "Response in 2-4 hours"},
	},
}

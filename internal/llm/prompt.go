package llm

// systemMessage pins the model to data extraction. The model is told to
// emit no prose, no markdown and no code because it sometimes does anyway;
// the sanitizer deals with the leftovers.
const systemMessage = `You are a receipt data extraction assistant. Your ONLY task is to extract information from receipt text and return it as a JSON object. You must NOT include any explanations, code, or markdown. You must NOT generate any example or placeholder code.`

const extractionPrompt = `Extract the following information from the receipt text and return it as a JSON object:

{
  "merchantName": "string or null",
  "totalAmount": number or null,
  "purchaseDate": "YYYY-MM-DD or null",
  "items": [
    {
      "name": "string",
      "quantity": number,
      "price": number
    }
  ]
}

Rules:
1. Return ONLY the JSON object, no other text
2. Use null for any field you cannot find
3. For items, only include items that are explicitly listed
4. For totalAmount, use the highest number that appears to be a total
5. For purchaseDate, convert any date format to YYYY-MM-DD

Receipt text:`

// BuildPrompt assembles the single fixed prompt sent for one extraction.
func BuildPrompt(recoveredText string) string {
	return systemMessage + "\n\n" + extractionPrompt + "\n\n" + recoveredText
}

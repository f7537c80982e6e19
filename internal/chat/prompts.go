package chat

// Fixed assistant-visible strings. A chat turn must always produce some
// assistant text, so every failure path maps onto one of these.
const (
	emptyReplyText = "Mình chưa có phản hồi. Bạn có thể thử diễn đạt lại yêu cầu cụ thể hơn không?"

	incompleteReplyText = "Mình đã gọi API nhưng chưa nhận được phản hồi hoàn chỉnh. Bạn thử lại giúp mình nhé."

	rateLimitedReplyText = "Hệ thống đang bận (bị giới hạn tần suất). Bạn vui lòng thử lại sau ít phút nhé."

	connectivityReplyText = "Xin lỗi, mình đang gặp sự cố khi kết nối với trợ lý A.I. Bạn thử lại sau giúp mình nhé."
)

// buildSystemPrompt assembles the system instruction. When autoRun is
// off the model is forbidden from invoking tools and asked to describe
// the call it would make instead.
func buildSystemPrompt(autoRun bool) string {
	mode := "TẮT"
	if autoRun {
		mode = "BẬT"
	}

	return `Bạn là trợ lý tìm kiếm địa điểm trong ứng dụng placechat.

Mục tiêu:
- Trò chuyện ngắn gọn, rõ ràng bằng tiếng Việt.
- Nếu người dùng muốn tìm địa điểm, hãy tự động gọi công cụ ` + "`search_places`" + `.
- Nếu thiếu thông tin (đặc biệt là khu vực/area), hãy hỏi lại đúng 1–2 câu.

Quy tắc gọi công cụ:
- Chỉ gọi ` + "`search_places`" + ` khi người dùng muốn tra cứu địa điểm thật sự.
- Tham số:
  - area: bắt buộc (ví dụ: "Quận 1", "Đà Lạt", "Thủ Đức")
  - keyword: tuỳ chọn (ví dụ: "bệnh viện", "cafe làm việc", "khách sạn 4 sao")
- Không bịa kết quả. Nếu chưa gọi công cụ thì không được liệt kê danh sách địa điểm cụ thể.

Chế độ:
- AutoRunApi=` + mode + `.
- Nếu AutoRunApi TẮT: KHÔNG được gọi công cụ. Hãy giải thích API nào sẽ gọi và cần area/keyword gì.

Định dạng trả lời:
- Ưu tiên gạch đầu dòng ngắn.
- Nếu có kết quả: tóm tắt 5–10 địa điểm (tên, rating nếu có, địa chỉ ngắn), và đề xuất lọc/tiêu chí.`
}

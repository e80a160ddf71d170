// Package messages holds the Persian user-facing texts of the bot.
package messages

import (
	"fmt"

	"donor-bot/internal/jalali"
)

// CardNumber is the charity card number shown to donors.
const CardNumber = "۶۲۲۱۰۶۱۲۳۷۷۵۷۰۸۵"

// AdminUsername is the public admin contact handle.
const AdminUsername = "@Ahrarcharity_admin"

// PinRequest asks for the donor's referral code.
func PinRequest() string {
	return "سلام\nلطفا کد معرف‌تون رو بفرستید (مثلا 021)"
}

// InvalidPin is sent when no donor matches the entered code.
func InvalidPin() string {
	return "کد شما یافت نشد!\n" +
		"لطفا یک کد معرف معتبر ارسال کنید\n" +
		"(مطمئن شوید کیبورد شما روی زبان انگلیسی است)"
}

// VerificationRequest asks the donor to confirm their identity.
func VerificationRequest(fullName string) string {
	return fmt.Sprintf("شما %s هستید؟", fullName)
}

// VerificationSuccess summarizes the donor's account after binding.
func VerificationSuccess(donationLink, amount string) string {
	return "اطلاعات شما با موفقیت ثبت شد\n\n" +
		fmt.Sprintf("شماره کارت خیریه (با لمس کردن کپی می شود): %s\n", CardNumber) +
		fmt.Sprintf("لینک پرداخت: %s\n", donationLink) +
		fmt.Sprintf("مبلغ تعهد من: %s\n", amount) +
		"آپلود فیش واریزی: /upload\n" +
		"سابقه من: /history\n" +
		"آخرین گزارش خیریه: /report"
}

// MainMenu lists the commands available to a verified donor.
func MainMenu() string {
	return "منوی اصلی:\n\n" +
		"/card - شماره کارت خیریه\n" +
		"/link - لینک پرداخت\n" +
		"/amount - مبلغ تعهدی من\n" +
		"/upload - آپلود فیش واریزی\n" +
		"/history - سابقه پرداخت‌های من"
}

// DonationReminder is the monthly due notice for one donor.
func DonationReminder(fullName, amount, donationLink string) string {
	return fmt.Sprintf("%s عزیز سلام\n", fullName) +
		fmt.Sprintf("موعد پرداخت %s تومان این ماه فرا رسیده\n", amount) +
		fmt.Sprintf("لینک پرداخت:\n%s\n", donationLink) +
		"شماره کارت خیریه (با لمس کردن کپی می شود):\n" +
		CardNumber + " - مهدی شاعری\n" +
		"در صورت واریز وجه، رسید آنرا از طریق آپلود بفرستید"
}

// PastDueReminder nudges a donor whose payment is still unsettled.
func PastDueReminder(fullName, amount, donationLink string) string {
	return fmt.Sprintf("%s عزیز\n\n", fullName) +
		fmt.Sprintf("متاسفانه پرداخت %s تومانی شما هنوز ثبت نشده است.\n", amount) +
		"لطفا در اسرع وقت درخواست خود را انجام دهید.\n\n" +
		fmt.Sprintf("لینک پرداخت: %s", donationLink)
}

// PaymentApproved confirms an accepted proof of payment.
func PaymentApproved() string {
	return "پرداخت شما با موفقیت تأیید شد!\nبرای کمک شما سپاسگزارم."
}

// PaymentDenied reports a rejected proof of payment.
func PaymentDenied() string {
	return "متأسفانه پرداخت شما تأیید نشد.\n" +
		fmt.Sprintf("لطفا با ادمین (%s) تماس بگیرید.", AdminUsername)
}

// AdminApprovalRequest announces a new pending payment to the admin.
func AdminApprovalRequest(fullName, amount string, paymentID int64) string {
	return "پرداخت جدید برای تأیید:\n\n" +
		fmt.Sprintf("نام: %s\n", fullName) +
		fmt.Sprintf("مبلغ: %s\n", amount) +
		fmt.Sprintf("شناسه پرداخت: %d", paymentID)
}

// AdminDecisionPrompt accompanies the approve/deny buttons.
func AdminDecisionPrompt() string {
	return "لطفا تصویر را تأیید یا رد کنید:"
}

// ProofReceived acknowledges a submitted proof image.
func ProofReceived() string {
	return "تصویر شما با موفقیت ارسال شد.\nانتظار تأیید مدیر..."
}

// ProofReceivedNoAdmin acknowledges the image when no admin is configured.
func ProofReceivedNoAdmin() string {
	return "تصویر با موفقیت ارسال شد؛ اما ادمین پیکربندی نشده است. لطفا صبور باشید."
}

// UploadPrompt asks the donor to send the proof photo.
func UploadPrompt() string {
	return "لطفا یک تصویر ارسال کنید."
}

// CardInfo shows the charity card number on request.
func CardInfo() string {
	return fmt.Sprintf("شماره کارت خیریه (با لمس کردن کپی می شود):\n%s", CardNumber)
}

// DonationLink shows the donor's personal payment link.
func DonationLink(link string) string {
	return fmt.Sprintf("لینک پرداخت شما:\n%s", link)
}

// DonationAmount shows the donor's pledged amount.
func DonationAmount(amount string) string {
	return fmt.Sprintf("مبلغ تعهدی شما: %s تومان", amount)
}

// PaymentStatusLabel renders a payment status with its glyph.
func PaymentStatusLabel(status string) string {
	switch status {
	case "approved":
		return "✅ تأیید شده"
	case "pending":
		return "⏳ در انتظار"
	case "failed":
		return "❌ رد شده"
	default:
		return "نامشخص"
	}
}

// HistoryHeader opens the payment-history listing.
func HistoryHeader() string {
	return "سابقه پرداخت‌های من:\n\n"
}

// HistoryLine renders one payment-history row.
func HistoryLine(year, month int, status string) string {
	d := jalali.Date{Year: year, Month: month, Day: 1}
	return fmt.Sprintf("%s: %s\n", d.Format(), PaymentStatusLabel(status))
}

// NoHistory is shown when the donor has no payment records.
func NoHistory() string {
	return "سابقه‌ای برای شما وجود ندارد."
}

// PendingAdminWait tells a donor their account awaits admin approval.
func PendingAdminWait() string {
	return "حساب شما در انتظار تأیید مدیر است.\nلطفا بعداً دوباره تلاش کنید."
}

// PinInUse refuses a code that is already bound to another chat.
func PinInUse() string {
	return "این کد قبلا در حساب دیگری استفاده شده است.\n" +
		fmt.Sprintf("اگر این کد متعلق به شماست، با ادمین (%s) تماس بگیرید.", AdminUsername)
}

// AlreadyBound refuses binding a chat that belongs to another donor.
func AlreadyBound() string {
	return "این حساب تلگرام قبلا برای کاربر دیگری ثبت شده است.\nابتدا با /logout خارج شوید."
}

// DonorNotFound is the generic miss for a protected command.
func DonorNotFound() string {
	return "کاربری یافت نشد."
}

// LoggedOut confirms a logout.
func LoggedOut() string {
	return "شما با موفقیت از حساب خارج شدید."
}

// NotLoggedIn is sent on /logout without a bound account.
func NotLoggedIn() string {
	return "شما در سیستم وارد نشده‌اید."
}

// Cancelled confirms a /cancel.
func Cancelled() string {
	return "عملیات لغو شد."
}

// AdminOnly refuses a protected admin command.
func AdminOnly() string {
	return "فقط ادمین می‌تواند این دستور را اجرا کند."
}

// BroadcastUsage explains the /broadcast syntax.
func BroadcastUsage() string {
	return "استفاده: /broadcast پیام شما"
}

// BroadcastSent reports how many donors received a broadcast.
func BroadcastSent(count int) string {
	return fmt.Sprintf("پیام شما به %d کاربر ارسال شد.", count)
}

// ManualTriggerUsage explains the /manual_trigger syntax.
func ManualTriggerUsage() string {
	return "استفاده: /manual_trigger donation|reminder|report"
}

// ManualTriggerDone confirms a manually triggered job.
func ManualTriggerDone(job string) string {
	switch job {
	case "donation":
		return "اعلان‌های پرداخت ارسال شد."
	case "reminder":
		return "اعلان‌های یادآوری ارسال شد."
	default:
		return "گزارش ماهانه ارسال شد."
	}
}

// ReportHeader opens the in-chat month summary for the admin.
func ReportHeader(month, year int) string {
	return fmt.Sprintf("گزارش ماه %d سال %d:\n", month, year)
}

// ReportLine renders one summary row for the in-chat report.
func ReportLine(fullName, amount, status string) string {
	glyph := "❌"
	if status == "approved" {
		glyph = "✅"
	}
	return fmt.Sprintf("%s %s — %s", glyph, fullName, amount)
}

// DecisionRecorded is the callback acknowledgement shown to the admin.
func DecisionRecorded(approved bool) string {
	if approved {
		return "پرداخت تأیید شد ✅"
	}
	return "پرداخت رد شد ❌"
}

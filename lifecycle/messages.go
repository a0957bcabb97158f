package lifecycle

import (
	"fmt"

	"jobpazar/job"
	"jobpazar/notification"
)

func acceptedMessage(username string, j job.Job) notification.Message {
	return notification.Message{
		Subject: "Tebrikler! Teklifiniz Kabul Edildi",
		Text:    fmt.Sprintf("Teklifiniz Kabul Edildi: '%s' başlıklı ilan için verdiğiniz teklif işveren tarafından kabul edildi.", j.Title),
		MailBody: fmt.Sprintf("Merhaba %s,\n\n'%s' başlıklı ilan için verdiğiniz teklif işveren tarafından kabul edildi.\nİş durumu: %s",
			username, j.Title, j.Status),
	}
}

func rejectedMessage(username string, j job.Job) notification.Message {
	return notification.Message{
		Subject: "Teklifiniz ile ilgili güncelleme",
		Text:    fmt.Sprintf("Teklif Güncellemesi: '%s' başlıklı ilan için verdiğiniz teklif ne yazık ki kabul edilmedi.", j.Title),
		MailBody: fmt.Sprintf("Merhaba %s,\n\n'%s' başlıklı ilan için verdiğiniz teklif ne yazık ki kabul edilmedi.",
			username, j.Title),
	}
}

func deliveredMessage(j job.Job) notification.Message {
	return notification.Message{
		Subject: "İş Teslim Edildi",
		Text:    fmt.Sprintf("İş Teslim Edildi: '%s' için freelancer işi teslim etti. Lütfen inceleyin.", j.Title),
	}
}

func approvedMessage(j job.Job) notification.Message {
	return notification.Message{
		Subject: "İş Onaylandı",
		Text:    fmt.Sprintf("İş Onaylandı: '%s' işini tamamladınız! Ödeme serbest bırakıldı.", j.Title),
	}
}

func revisionMessage(j job.Job, feedback string) notification.Message {
	return notification.Message{
		Subject: "Revize Talebi",
		Text:    fmt.Sprintf("Revize Talebi: '%s' işi için revize istendi. Not: %s", j.Title, feedback),
	}
}

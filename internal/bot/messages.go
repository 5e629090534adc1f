package bot

// Тексты ответов бота. Вынесены в одно место, чтобы переводить и править
// формулировки, не трогая обработчики.
const (
	msgStart = "Привет! Наш цикл с Субагх крийей подошел к концу, с 3 марта стартует новый цикл. " +
		"Весна - период обновления, лучшее время для реализации новых намерений. Ты с нами?"
	msgHelp = "Доступные команды:\n" +
		"/start - Начать взаимодействие с ботом\n" +
		"/subscribe - Оформить подписку\n" +
		"/status - Проверить статус подписки\n" +
		"/cancel - Отменить подписку\n" +
		"/link_email - Привязать email для автоматического отслеживания подписки"

	msgSubscribePrompt        = "Выберите способ оплаты:"
	msgSubscribeInternational = "Международная карта"
	msgSubscribeRussian       = "Российская карта"
	msgPaymentInternational   = "Для оплаты международной картой перейдите по ссылке:\n%s"
	msgPaymentRussian         = "Для оплаты российской картой перейдите по ссылке:\n%s"

	msgCancelRussian       = "Для отмены подписки российской картой перейдите по ссылке:\n%s"
	msgCancelInternational = "Для отмены подписки перейдите по ссылке:\n%s"

	msgSubscriptionActive  = "Ваша подписка активна до %s."
	msgSubscriptionExpired = "Ваша подписка истекла %s. Используйте /subscribe для продления."
	msgNoSubscription      = "У вас нет активной подписки. Используйте /subscribe для оформления."

	msgLinkStart     = "Чтобы связать вашу подписку с аккаунтом Telegram, пожалуйста, введите email, который вы использовали при оформлении подписки."
	msgEmailInvalid  = "Пожалуйста, введите действительный email адрес."
	msgEmailConfirm  = "Вы указали email: %s. Это правильный адрес?"
	msgEmailLinked   = "Спасибо! Ваш email успешно привязан к аккаунту. Теперь система будет автоматически отслеживать статус вашей подписки."
	msgEmailRetry    = "Давайте попробуем еще раз. Пожалуйста, введите email, который вы использовали при оформлении подписки."
	msgEmailKept     = "Вы решили сохранить текущий email. Ваша подписка остается связанной с вашим аккаунтом."
	msgAlreadyLinked = "Ваш аккаунт уже связан с email: %s. Хотите изменить его?"
	msgLinkNoFlow    = "Сейчас нет активной привязки email. Начните заново командой /link_email."
	msgTryAgainLater = "Что-то пошло не так. Пожалуйста, попробуйте позже."

	msgBtnYes         = "Да"
	msgBtnNo          = "Нет, ввести заново"
	msgBtnChangeEmail = "Изменить email"
	msgBtnKeepEmail   = "Оставить текущий"

	msgSyncStarted  = "Синхронизация подписок запущена."
	msgSyncDenied   = "Эта команда доступна только администраторам."
	msgUnknownInput = "Я не понял сообщение. Список команд: /help"
)
